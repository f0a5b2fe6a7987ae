package main

import "github.com/oshokin/mesos-packager/cmd/mesos-packager/cmd"

func main() {
	cmd.Execute()
}
