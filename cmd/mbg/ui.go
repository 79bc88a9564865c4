package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	gain    = color.New(color.FgGreen)
	loss    = color.New(color.FgRed)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printHeader(s string) {
	fmt.Println()
	accent.Println(s)
}

func printKV(key, value string) {
	neutral.Printf("  %-14s", key)
	fmt.Println(value)
}

func printSuccess(s string) {
	success.Println(s)
}

func printGain(s string) {
	gain.Println("  " + s)
}

func printLoss(s string) {
	loss.Println("  " + s)
}

func printDanger(s string) {
	danger.Println("  " + s)
}
