package events

import "github.com/spf13/cobra"

var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Event submission commands",
	Long:  "Submit trackable events to the reward engine",
}
