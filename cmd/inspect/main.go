package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"sealtalk/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// inspect dumps the local message archive as a table, read-only, so it can
// run while the chat client holds the database lock.
func main() {
	dbPath := flag.String("db", "", "Path to the badger archive")
	window := flag.Duration("window", 24*time.Hour, "How far back to list")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db path")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer db.Close()

	archive := repositories.NewArchive(db, slog.Default())
	messages, err := archive.ListSince(time.Now().Add(-*window))
	if err != nil {
		log.Fatalf("Failed to list archive: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Content", "ID"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		table.Append([]string{
			m.CreatedAt.Local().Format(time.DateTime),
			m.SenderName,
			m.Content,
			m.ID.String(),
		})
	}
	table.Render()
}
