/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/chemo-it/backoffice/cmd"

func main() {
	cmd.Execute()
}
