package main

import "github.com/dongdio/s3mock/cmd"

func main() {
	cmd.Execute()
}
