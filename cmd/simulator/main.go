package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "night":
		nightCmd(apiURL, args)
	case "feed":
		feedCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Sleep Simulator - Development tool for exercising the feed

USAGE:
  simulator <command> [options]

COMMANDS:
  night     Register users, follow a random subset, and run one short night each
  feed      Log in as an existing user and print their feed
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Ten sleepers, each sleeping 2-5 seconds, 40% chance to follow each other
  simulator night --count=10 --min-sleep=2s --max-sleep=5s --follow=0.4

  # Print a week of someone's feed
  simulator feed --user=Sleeper3_12345 --week=2026-10-05`)
}

type sleeper struct {
	user  *User
	token string
}

func nightCmd(apiURL string, args []string) {
	fs := pflag.NewFlagSet("night", pflag.ExitOnError)
	count := fs.Int("count", 5, "Number of fake users to create")
	minSleep := fs.Duration("min-sleep", time.Second, "Shortest simulated night")
	maxSleep := fs.Duration("max-sleep", 3*time.Second, "Longest simulated night")
	followProb := fs.Float64("follow", 0.5, "Probability that one user follows another")
	settle := fs.Duration("settle", 2*time.Second, "Wait for aggregation before reading feeds")
	fs.Parse(args)

	if *count < 2 {
		fmt.Println("Error: --count must be at least 2")
		os.Exit(1)
	}
	if *maxSleep < *minSleep {
		fmt.Println("Error: --max-sleep must not be below --min-sleep")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Println("=== Sleep Simulator: Night ===")
	fmt.Println()

	// 1. Register users
	sleepers := make([]sleeper, 0, *count)
	for i := 0; i < *count; i++ {
		user, token, err := client.RegisterUser(fmt.Sprintf("Sleeper%d", i+1))
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to create user: %v\n", i+1, *count, err)
			os.Exit(1)
		}
		sleepers = append(sleepers, sleeper{user: user, token: token})
		fmt.Printf("  [%d/%d] %s registered\n", i+1, *count, user.DisplayName)
	}

	// 2. Random follow graph
	fmt.Println()
	fmt.Print("Building follow graph... ")
	edges := 0
	for _, a := range sleepers {
		for _, b := range sleepers {
			if a.user.ID == b.user.ID || rand.Float64() >= *followProb {
				continue
			}
			if _, err := client.Follow(a.token, b.user.ID); err != nil {
				fmt.Printf("FAILED\n  Error: %v\n", err)
				os.Exit(1)
			}
			edges++
		}
	}
	fmt.Printf("OK (%d edges)\n", edges)

	// 3. Everyone clocks in, sleeps, clocks out
	fmt.Println()
	fmt.Println("Sleeping:")
	for _, s := range sleepers {
		if _, err := client.ClockIn(s.token); err != nil {
			fmt.Printf("  %s FAILED to clock in: %v\n", s.user.DisplayName, err)
			os.Exit(1)
		}
	}

	type result struct {
		name    string
		session *Session
		err     error
	}
	results := make(chan result, len(sleepers))
	for _, s := range sleepers {
		nap := *minSleep + rand.N(*maxSleep-*minSleep+1)
		go func() {
			time.Sleep(nap)
			session, err := client.ClockOut(s.token)
			results <- result{name: s.user.DisplayName, session: session, err: err}
		}()
	}
	for range sleepers {
		r := <-results
		if r.err != nil {
			fmt.Printf("  %s FAILED to clock out: %v\n", r.name, r.err)
			continue
		}
		fmt.Printf("  %s slept %ds\n", r.name, r.session.Duration)
	}

	// 4. Read feeds for the current week
	fmt.Println()
	fmt.Printf("Waiting %s for aggregation...\n", *settle)
	time.Sleep(*settle)

	week := time.Now().UTC().Format("2006-01-02")
	for _, s := range sleepers {
		feed, err := client.Feed(s.token, week)
		if err != nil {
			fmt.Printf("  %s FAILED to read feed: %v\n", s.user.DisplayName, err)
			continue
		}
		printFeed(s.user.DisplayName, feed)
	}
}

func feedCmd(apiURL string, args []string) {
	fs := pflag.NewFlagSet("feed", pflag.ExitOnError)
	displayName := fs.String("user", "", "Display name to log in as (required)")
	password := fs.String("password", "testpassword123", "Password")
	week := fs.String("week", "", "Any date in the week to show (default: previous week)")
	fs.Parse(args)

	if *displayName == "" {
		fmt.Println("Error: --user is required")
		fmt.Println("\nUsage: simulator feed --user=NAME [--week=YYYY-MM-DD]")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	user, token, err := client.Login(*displayName, *password)
	if err != nil {
		fmt.Printf("Failed to log in: %v\n", err)
		os.Exit(1)
	}

	feed, err := client.Feed(token, *week)
	if err != nil {
		fmt.Printf("Failed to read feed: %v\n", err)
		os.Exit(1)
	}
	printFeed(user.DisplayName, feed)
}

func printFeed(owner string, feed *Feed) {
	fmt.Printf("\n  Feed of %s, week of %s (%d entries)\n", owner, feed.WeekKey, len(feed.Entries))
	for i, e := range feed.Entries {
		fmt.Printf("    %2d. %-20s %6ds  from %s\n", i+1, e.User.DisplayName, e.Duration, e.ClockInTime.Format(time.RFC3339))
	}
}
