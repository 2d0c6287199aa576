package main

import (
	"context"
	"log"
	"os"
	"time"

	flagdecide "github.com/flagdecide/go-server-sdk"
	"github.com/flagdecide/go-server-sdk/api"
)

func main() {
	datafile := os.Getenv("FLAGDECIDE_DATAFILE")
	if datafile == "" {
		log.Fatal("FLAGDECIDE_DATAFILE env var not set: set it to the path of your datafile")
	}
	flagKey := os.Getenv("FLAGDECIDE_FLAG_KEY")
	if flagKey == "" {
		flagKey = "buy_button"
	}

	options := flagdecide.Options{
		EventFlushInterval:      time.Second * 10,
		DatafilePollingInterval: time.Second * 10,
		EventDispatcher:         flagdecide.LogEventDispatcher{},
		ClientEventHandler:      make(chan api.ClientEvent, 10),
	}
	client, err := flagdecide.NewClientFromFile(datafile, &options)
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			log.Printf("Error closing client: %v", err)
		}
	}()

	go func() {
		for event := range options.ClientEventHandler {
			log.Printf("Client event: %s %v", event.EventType, event.EventData)
		}
	}()

	user := client.CreateUserContext("user42", api.UserAttributes{"age": 30, "plan": "gold"})

	decision, err := user.Decide(flagKey, api.DecideOptions{IncludeReasons: true})
	if err != nil {
		log.Fatalf("Error deciding %s: %v", flagKey, err)
	}
	log.Printf("%s: enabled=%t variation=%s reason=%s", decision.FlagKey, decision.Enabled, decision.VariationKey, decision.Reason)
	for _, reason := range decision.Reasons {
		log.Printf("  %s", reason)
	}

	for key, d := range user.DecideAll(api.DecideOptions{EnabledFlagsOnly: true}) {
		log.Printf("enabled flag %s -> %s %v", key, d.VariationKey, d.Variables)
	}

	if err := user.TrackEvent("purchase", map[string]interface{}{"value": 42.0}); err != nil {
		log.Printf("Error tracking event: %v", err)
	}
}
