package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ryanschwarting/coinflip/internal/client"
	"github.com/ryanschwarting/coinflip/internal/server"
)

// HealthCmd waits for a server to report healthy. Useful in scripts that
// start the server and then drive it.
type HealthCmd struct {
	Config string        `short:"c" default:"coinflip-client.hcl" env:"COINFLIP_CLIENT_CONFIG" help:"Path to client HCL profile"`
	URL    string        `name:"url" env:"COINFLIP_URL" help:"Server URL (overrides profile)"`
	Wait   time.Duration `default:"10s" help:"How long to wait before failing"`
}

func (c *HealthCmd) Run() error {
	url := c.URL
	if url == "" {
		profile, err := client.LoadClientConfig(c.Config)
		if err != nil {
			return err
		}
		url = profile.Server.URL
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Wait)
	defer cancel()
	if err := server.WaitForHealthy(ctx, url); err != nil {
		return fmt.Errorf("server at %s not healthy after %s: %w", url, c.Wait, err)
	}
	fmt.Println(winStyle.Render("healthy"))
	return nil
}
