// Command search-probe runs a few yt-dlp searches to verify the binary is
// installed and the flat-playlist parsing works.
package main

import (
	"context"
	"log"

	"github.com/azuridayo/tiptune/internal/staticservices"
)

func main() {
	queries := []string{
		"yena nemonemo",
		"yena good morning",
		"yena being a good girl hurts",
		"yena smartphone",
	}
	ytdlp := staticservices.NewYTDLPService(log.Default())
	for _, q := range queries {
		tracks, err := ytdlp.Search(context.Background(), q, 1)
		if err != nil {
			panic(err)
		}
		for _, t := range tracks {
			log.Println(t.Title, t.Channel, t.URL)
		}
	}
}
