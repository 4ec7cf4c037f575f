package main

import "go-cvlibrary-scraper/cmd/scraper/cmd"

func main() {
	cmd.Execute()
}
