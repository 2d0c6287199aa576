package main

import (
	"context"
	"log"
	"os"

	"github.com/open-feature/go-sdk/pkg/openfeature"

	flagdecide "github.com/flagdecide/go-server-sdk"
)

func main() {
	datafile := os.Getenv("FLAGDECIDE_DATAFILE")
	if datafile == "" {
		log.Fatal("FLAGDECIDE_DATAFILE env var not set: set it to the path of your datafile")
	}

	client, err := flagdecide.NewClientFromFile(datafile, &flagdecide.Options{})
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}
	openfeature.SetProvider(flagdecide.Provider{Client: client})
	ofClient := openfeature.NewClient("hello")

	evalCtx := openfeature.NewEvaluationContext("user42", map[string]interface{}{
		"age":         30,
		"plan":        "gold",
		"platform":    "ios",
		"app_version": "2.1.0",
	})

	enabled, err := ofClient.BooleanValue(context.Background(), "buy_button", false, evalCtx)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("buy_button enabled: %t", enabled)

	value, err := ofClient.ObjectValue(context.Background(), "checkout_flow.theme", map[string]interface{}{"default": "value"}, evalCtx)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Variable results: %v | %T \n", value, value)

	details, err := ofClient.BooleanValueDetails(context.Background(), "doesnt-exist", false, evalCtx)
	if err != nil {
		log.Printf("Expected error: %v", err)
	}

	log.Printf("Variable results: %v\n", details)
}
