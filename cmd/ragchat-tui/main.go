package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"ragchat/internal/tui"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "Chat backend base URL")
	session := flag.String("session", "", "Session id (defaults to a fresh one)")
	flag.Parse()

	id := *session
	if id == "" {
		id = uuid.NewString()
	}

	client := tui.NewClient(*serverURL)
	m := tui.New(client, id)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
