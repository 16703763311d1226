// Command inspect dumps the badger keyspace as a table, for poking at a
// database left behind by the server. The DB is opened read-only so a
// running server is not disturbed.
package main

import (
	"chat-hub/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data/badger"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Config error: ", err)
	}

	dbPath := flag.String("db", cfg.BadgerFilepath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, user:, chat:, member:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf(" chat-hub inspect %s ", *prefix))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Entity", "At", "Who", "Detail"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append(describe(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

// describe turns one record into a table row based on its key namespace.
func describe(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m repositories.DiskMessage
		if err := json.Unmarshal(value, &m); err != nil {
			return []string{key, "MSG", "", "", "unreadable: " + err.Error()}
		}
		detail := m.Content
		if len(detail) > 48 {
			detail = detail[:48] + "…"
		}
		return []string{key, strings.ToUpper(m.Kind),
			m.CreatedAt.Format(time.TimeOnly), shortID(m.SenderID), detail}
	case strings.HasPrefix(key, "user:"):
		var u repositories.DiskUser
		if err := json.Unmarshal(value, &u); err != nil {
			return []string{key, "USER", "", "", "unreadable: " + err.Error()}
		}
		return []string{key, "USER",
			u.LastSeen.Format(time.TimeOnly), u.Username, u.DisplayName}
	case strings.HasPrefix(key, "chat:"):
		var c repositories.DiskChat
		if err := json.Unmarshal(value, &c); err != nil {
			return []string{key, "CHAT", "", "", "unreadable: " + err.Error()}
		}
		kind := "DIRECT"
		if c.IsGroup {
			kind = "GROUP"
		}
		return []string{key, kind, c.UpdatedAt.Format(time.TimeOnly), "", c.Name}
	case strings.HasPrefix(key, "member:"):
		var m repositories.DiskMembership
		if err := json.Unmarshal(value, &m); err != nil {
			return []string{key, "MEMBER", "", "", "unreadable: " + err.Error()}
		}
		return []string{key, "MEMBER",
			m.JoinedAt.Format(time.TimeOnly), shortID(m.UserID), shortID(m.ChatID)}
	default:
		return []string{key, "?", "", "", fmt.Sprintf("%d bytes", len(value))}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
