package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// localControl reads simple operator commands from stdin so the queue can be
// driven from the terminal when the dashboard is not open.
func (a *App) localControl() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-a.ctx.Done():
			return
		default:
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
		case "pause":
			a.store.Pause()
			a.broadcastQueueState()
			fmt.Println("Queue paused")
		case "resume":
			a.store.Resume(a.ctx)
			a.broadcastQueueState()
			fmt.Println("Queue resumed")
		case "skip", "next":
			a.store.Advance(a.ctx)
			a.broadcastQueueState()
			fmt.Println("Skipped to next track")
		case "status":
			st := a.store.State()
			if st.NowPlaying != nil {
				fmt.Printf("Now playing: %s (%s)\n", st.NowPlaying.Name, st.NowPlaying.URI)
			} else {
				fmt.Println("Nothing playing")
			}
			fmt.Printf("Paused: %v, queued: %d\n", st.Paused, len(st.Pending))
		case "help":
			fmt.Println("Commands: pause, resume, skip, status, quit")
		case "quit", "exit":
			a.cancel()
			return
		default:
			fmt.Println("Unknown command, type help for a list")
		}
	}
}
