package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	primaryColor   = lipgloss.Color("#00D9FF")
	successColor   = lipgloss.Color("#00FF88")
	errorColor     = lipgloss.Color("#FF4444")
	secondaryColor = lipgloss.Color("#6C757D")

	titleStyle     = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	secondaryStyle = lipgloss.NewStyle().Foreground(secondaryColor)

	sqlColor = color.New(color.FgCyan, color.Bold)
	argColor = color.New(color.FgYellow)
)

func printTitle(format string, args ...interface{}) {
	fmt.Println(titleStyle.Render(fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...interface{}) {
	fmt.Println(successStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

func printError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

func printDim(format string, args ...interface{}) {
	fmt.Println(secondaryStyle.Render(fmt.Sprintf(format, args...)))
}

func printTable(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
