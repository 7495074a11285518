package main

import joykontrol "github.com/0h41/joykontrol/src"

func main() {
	joykontrol.Run()
}
