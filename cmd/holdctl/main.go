package main

import "lodgr/internal/holdctl"

func main() {
	holdctl.Execute()
}
