// Package main provides a read-only inspector for the local mirror.
//
// It dumps counts and a sample of the mirrored state so sync problems can be
// diagnosed without attaching a debugger to the running daemon.
//
// Usage:
//
//	DB_PATH=~/PromptNote/data/db go run ./cmd/dbinspect
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/localdb"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PromptNote/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Local Mirror Inspection ===")
	fmt.Println()

	var items []domain.Item
	var collections []domain.Collection
	var tags []domain.Tag
	pendingDeletes := 0
	cachedPreviews := 0
	staleCache := 0
	hasSession := false

	err = db.View(func(txn *badger.Txn) error {
		readJSON(txn, localdb.KeyItems, &items)
		readJSON(txn, localdb.KeyCollections, &collections)
		readJSON(txn, localdb.KeyTags, &tags)

		if _, err := txn.Get([]byte(localdb.KeyAuthToken)); err == nil {
			hasSession = true
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		now := time.Now()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			switch {
			case strings.HasPrefix(key, "pending_delete:"):
				pendingDeletes++
				err := it.Item().Value(func(val []byte) error {
					var p localdb.PendingDelete
					if err := json.Unmarshal(val, &p); err != nil {
						return err
					}
					fmt.Printf("Pending delete: %s (enqueued %s, %d attempts)\n",
						p.ItemID, p.EnqueuedAt.Format(time.RFC3339), p.Attempts)
					return nil
				})
				if err != nil {
					log.Printf("Error reading pending delete %s: %v", key, err)
				}
			case strings.HasPrefix(key, "preview_cache:"):
				cachedPreviews++
				_ = it.Item().Value(func(val []byte) error {
					var p localdb.CachedPreview
					if json.Unmarshal(val, &p) == nil && now.Sub(p.Timestamp) > 24*time.Hour {
						staleCache++
					}
					return nil
				})
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	byType := map[domain.ItemType]int{}
	favorites := 0
	withPreview := 0
	for i, item := range items {
		byType[item.Type]++
		if item.Favorite {
			favorites++
		}
		if item.Preview != nil {
			withPreview++
		}
		// Show the first few items
		if i < 3 {
			fmt.Printf("Item: %s\n", item.Title)
			fmt.Printf("  ID: %s\n", item.ID)
			fmt.Printf("  Type: %s, Collection: %s, Tags: %v\n", item.Type, item.Collection, item.Tags)
			fmt.Println()
		}
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total items: %d\n", len(items))
	for _, t := range []domain.ItemType{domain.TypeNote, domain.TypeLink, domain.TypeCode, domain.TypePrompt} {
		fmt.Printf("  %s: %d\n", t, byType[t])
	}
	fmt.Printf("Favorites: %d\n", favorites)
	fmt.Printf("Items with preview: %d\n", withPreview)
	fmt.Printf("Collections: %d\n", len(collections))
	fmt.Printf("Tags: %d\n", len(tags))
	fmt.Printf("Pending deletes: %d\n", pendingDeletes)
	fmt.Printf("Cached previews: %d (%d older than 24h)\n", cachedPreviews, staleCache)
	fmt.Printf("Stored session: %v\n", hasSession)
}

func readJSON(txn *badger.Txn, key string, out any) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
	if err != nil {
		log.Printf("Error reading %s: %v", key, err)
	}
}
