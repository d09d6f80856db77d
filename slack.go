package main

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// PostReportBlocks delivers the sectioned payload. The fallback text shows
// in notifications and in clients that cannot render blocks.
func PostReportBlocks(api *slack.Client, channel, fallback string, blocks []slack.Block) error {
	_, ts, err := api.PostMessage(channel,
		slack.MsgOptionText(fallback, false),
		slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("posting blocks to %s: %w", channel, err)
	}
	log.Printf("slack post done channel=%s ts=%s blocks=%d", channel, ts, len(blocks))
	return nil
}

// PostPlainText is the fallback delivery path used when parsing recovered no
// structure, and for error notifications.
func PostPlainText(api *slack.Client, channel, text string) error {
	_, ts, err := api.PostMessage(channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting text to %s: %w", channel, err)
	}
	log.Printf("slack post done channel=%s ts=%s plain_text=true", channel, ts)
	return nil
}
