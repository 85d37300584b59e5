package main

import (
	"fmt"
	"time"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/fileutil"
)

// ExportCmd writes a room's current game and archived receipts to a JSON file.
type ExportCmd struct {
	RemoteFlags `embed:""`
	Room        string `arg:"" help:"Room id"`
	Out         string `short:"o" help:"Output file (default <room>.json)"`
}

type roomExport struct {
	RoomID     string           `json:"roomId"`
	ExportedAt time.Time        `json:"exportedAt"`
	Game       *coinflip.Game   `json:"game"`
	Receipts   []*coinflip.Game `json:"receipts"`
}

func (c *ExportCmd) Run() error {
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()

	doc := roomExport{RoomID: c.Room, ExportedAt: time.Now().UTC()}
	if doc.Game, err = cl.Game(ctx, c.Room); err != nil {
		return fmt.Errorf("room %s: %w", c.Room, err)
	}
	if doc.Receipts, err = cl.Receipts(ctx, c.Room); err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = c.Room + ".json"
	}
	if err := fileutil.WriteJSONAtomic(out, doc, 0o644); err != nil {
		return err
	}
	fmt.Println(row("exported", fmt.Sprintf("%s (%d receipts)", out, len(doc.Receipts))))
	return nil
}
