package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/mmcdole/folio/internal/adapter"
	"github.com/mmcdole/folio/internal/adapter/source"
	"github.com/mmcdole/folio/internal/domain"
	"github.com/mmcdole/folio/internal/service"
)

// runInit prompts for the endpoint and API key, checks them against the
// server and writes the configuration file
func runInit(ctx context.Context, cfg *adapter.Config) error {
	fmt.Println()
	fmt.Println("Welcome to Folio!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		baseURL, err := prompt(reader, "API base URL (e.g. https://library.example.org/api)", cfg.API.BaseURL)
		if err != nil {
			return err
		}
		identity, err := prompt(reader, "Key identity", cfg.API.KeyIdentity)
		if err != nil {
			return err
		}
		credential, err := promptSecret(reader, "Key credential")
		if err != nil {
			return err
		}
		if credential == "" {
			credential = cfg.API.KeyCredential
		}

		cfg.API.BaseURL = baseURL
		cfg.API.KeyIdentity = identity
		cfg.API.KeyCredential = credential

		fmt.Println()
		fmt.Print("Checking connection... ")
		if err := checkConnection(ctx, cfg); err != nil {
			fmt.Printf("\n✗ %v\n", err)
			fmt.Println("Please check the values and try again.")
			fmt.Println()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Println("✓")
		break
	}

	path, err := adapter.SaveConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Configuration saved to %s\n", path)
	fmt.Println()
	fmt.Println("Run folio again to start browsing.")
	return nil
}

func prompt(reader *bufio.Reader, label, current string) (string, error) {
	for {
		if current != "" {
			fmt.Printf("%s [%s]: ", label, current)
		} else {
			fmt.Printf("%s: ", label)
		}
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			input = current
		}
		if input != "" {
			return input, nil
		}
		fmt.Println("A value is required. Please try again.")
	}
}

// promptSecret reads a value without echo when stdin is a terminal
func promptSecret(reader *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s (leave empty to keep): ", label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(input), nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// checkConnection lists a single item with the candidate settings
func checkConnection(ctx context.Context, cfg *adapter.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	probe := *cfg
	probe.Cache.Backend = adapter.CacheBackendMemory

	stack, err := source.New(ctx, &probe, adapter.NullLogger())
	if err != nil {
		return err
	}
	defer stack.Close()

	_, err = service.NewCatalogService(stack.Client, nil).List(ctx, domain.ListQuery{Page: 1, Limit: 1})
	return err
}
