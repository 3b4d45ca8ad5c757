// Package main provides a tool to seed the server database with demo content.
//
// This fills the default user's workspace with realistic collections, tags
// and items of every type, useful for exercising the UI and API by hand.
//
// Usage:
//
//	DB_PATH=~/PromptNote/data/promptnote.db go run ./cmd/seed
//	DB_PATH=... go run ./cmd/seed --create-users  # Also create extra test users
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/server/sqlite"
)

var createUsers = flag.Bool("create-users", false, "Create extra test users")

type seedItem struct {
	item       domain.Item
	collection string
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PromptNote/data/promptnote.db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *createUsers {
		createTestUsers(ctx, s)
	}

	userID := sqlite.DefaultUserID
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		log.Fatalf("Default user missing: %v", err)
	}

	collections := []domain.Collection{
		{ID: "col_trabalho", Name: "Trabalho", Description: "Notas e links do trabalho", Icon: "briefcase"},
		{ID: "col_estudos", Name: "Estudos", Description: "Material de estudo", Icon: "book"},
		{ID: "col_ia", Name: "Prompts de IA", Description: "Prompts testados e aprovados", Icon: "lightbulb"},
	}
	for i := range collections {
		if err := s.CreateCollection(ctx, userID, &collections[i]); err != nil {
			log.Printf("Collection %s: %v (skipping)", collections[i].Name, err)
			continue
		}
		fmt.Printf("Created collection: %s\n", collections[i].Name)
	}

	items := []seedItem{
		{
			collection: "col_trabalho",
			item: domain.Item{
				Type:  domain.TypeLink,
				Title: "Documentação da API interna",
				URL:   "https://wiki.exemplo.com/api",
				Tags:  []string{"trabalho", "referência"},
				Preview: &domain.Preview{
					Title:       "Wiki interna",
					Description: "Referência da API",
					URL:         "https://wiki.exemplo.com/api",
				},
			},
		},
		{
			collection: "col_trabalho",
			item: domain.Item{
				Type:        domain.TypeNote,
				Title:       "Ata da reunião de planejamento",
				Content:     "Decidimos priorizar a migração do banco antes do fim do trimestre.",
				Observation: "Revisar com o time na sexta",
				Tags:        []string{"trabalho", "reuniões"},
				Favorite:    true,
			},
		},
		{
			collection: "col_estudos",
			item: domain.Item{
				Type:        domain.TypeCode,
				Title:       "Worker pool em Go",
				Description: "Padrão de pool de workers com channels",
				Content:     "for i := 0; i < n; i++ {\n\tgo func() {\n\t\tfor job := range jobs {\n\t\t\tresults <- process(job)\n\t\t}\n\t}()\n}",
				Tags:        []string{"golang", "concorrência"},
			},
		},
		{
			collection: "col_ia",
			item: domain.Item{
				Type:     domain.TypePrompt,
				Title:    "Revisor de código",
				Content:  "Você é um revisor de código experiente. Analise o trecho a seguir apontando bugs, problemas de legibilidade e melhorias de desempenho, nessa ordem.",
				Tags:     []string{"prompts", "revisão"},
				Favorite: true,
			},
		},
		{
			collection: domain.DefaultCollectionID,
			item: domain.Item{
				Type:    domain.TypeNote,
				Title:   "Ideias soltas",
				Content: "Testar o atalho de captura rápida.",
				Tags:    []string{},
			},
		},
	}

	created := 0
	for _, si := range items {
		it := si.item
		it.Collection = si.collection
		if err := s.CreateItem(ctx, userID, &it); err != nil {
			log.Printf("Item %q: %v (skipping)", si.item.Title, err)
			continue
		}
		created++
		fmt.Printf("Created item: %s (%s)\n", it.Title, it.Type)
	}

	tags, err := s.ListTags(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to list tags: %v", err)
	}

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Items created: %d\n", created)
	fmt.Printf("Tags in database: %d\n", len(tags))
	for _, t := range tags {
		fmt.Printf("  %s (%d items)\n", t.Name, t.Count)
	}
}

func createTestUsers(ctx context.Context, s *sqlite.Store) {
	testUsers := []struct {
		name  string
		email string
	}{
		{"Ana Souza", "ana@exemplo.com"},
		{"Bruno Lima", "bruno@exemplo.com"},
		{"Carla Dias", "carla@exemplo.com"},
	}

	for _, tu := range testUsers {
		hash, err := auth.HashPassword("senha123")
		if err != nil {
			log.Printf("Failed to hash password for %s: %v", tu.email, err)
			continue
		}

		u := &domain.User{
			Name:         tu.name,
			Email:        tu.email,
			PasswordHash: hash,
		}
		if err := s.CreateUser(ctx, u); err != nil {
			log.Printf("User %s: %v (skipping)", tu.email, err)
			continue
		}
		fmt.Printf("Created test user: %s (%s)\n", tu.name, tu.email)
	}
}
