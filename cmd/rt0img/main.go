package main

import (
	"log"
	"os"

	"github.com/embeddedrt/rt0/tools/image"
)

func main() {
	log.Default().SetFlags(0)
	image.Main(os.Args)
}
