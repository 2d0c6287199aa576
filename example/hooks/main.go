package main

import (
	"fmt"
	"log"
	"os"

	flagdecide "github.com/flagdecide/go-server-sdk"
	"github.com/flagdecide/go-server-sdk/api"
)

func main() {
	datafile := os.Getenv("FLAGDECIDE_DATAFILE")
	if datafile == "" {
		log.Fatal("FLAGDECIDE_DATAFILE env var not set: set it to the path of your datafile")
	}

	beforeHook := func(context *flagdecide.HookContext) error {
		fmt.Printf("Before hook: Deciding flag '%s' for user '%s' (revision %s)\n", context.FlagKey, context.User.UserId, context.Revision)
		return nil
	}

	afterHook := func(context *flagdecide.HookContext, decision *api.Decision) error {
		fmt.Printf("After hook: Flag '%s' decided to %s (enabled: %t, reason: %s)\n",
			decision.FlagKey, decision.VariationKey, decision.Enabled, decision.Reason)
		return nil
	}

	onFinallyHook := func(context *flagdecide.HookContext, decision *api.Decision) error {
		fmt.Printf("OnFinally hook: Completed decision of flag '%s'\n", context.FlagKey)
		return nil
	}

	errorHook := func(context *flagdecide.HookContext, evalError error) error {
		fmt.Printf("Error hook: Error occurred while deciding flag '%s': %v\n", context.FlagKey, evalError)
		return nil
	}

	evalHook := flagdecide.NewEvalHook(beforeHook, afterHook, onFinallyHook, errorHook)

	client, err := flagdecide.NewClientFromFile(datafile, &flagdecide.Options{
		EvalHooks: []*flagdecide.EvalHook{evalHook},
	})
	if err != nil {
		log.Fatalf("Error initializing client: %v", err)
	}

	user := client.CreateUserContext("test-user", nil)

	fmt.Println("=== Deciding an existing flag ===")
	if _, err := user.Decide("buy_button", api.DecideOptions{}); err != nil {
		log.Printf("Error deciding flag: %v", err)
	}

	fmt.Println("\n=== Deciding a missing flag ===")
	if _, err := user.Decide("doesnt-exist", api.DecideOptions{}); err != nil {
		log.Printf("Error deciding flag: %v", err)
	}
}
