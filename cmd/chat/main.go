package main

import "github.com/nfrund/chatroom/cmd/chat/cmd"

func main() {
	cmd.Execute()
}
