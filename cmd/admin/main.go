package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"talklink/backend/internal/config"
	"talklink/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	store := storage.NewService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "notifications":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin notifications <user_id>")
			os.Exit(1)
		}
		if err := listNotifications(store, os.Args[2]); err != nil {
			log.Fatalf("Error listing notifications: %v", err)
		}
	case "clear":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin clear <user_id> <chat_id>")
			os.Exit(1)
		}
		cleared, err := store.MarkNotificationsRead(os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Error clearing notifications: %v", err)
		}
		fmt.Printf("Cleared %d notification(s).\n", cleared)
	case "reset-lastseen":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin reset-lastseen <user_id>")
			os.Exit(1)
		}
		// Resets to the epoch so the next setup replays full history.
		if err := store.UpdateLastSeen(os.Args[2], time.Time{}); err != nil {
			log.Fatalf("Error resetting lastSeen: %v", err)
		}
		fmt.Printf("Reset lastSeen for user %s.\n", os.Args[2])
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func listNotifications(store *storage.Service, userID string) error {
	notifications, err := store.UnreadNotifications(userID)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		fmt.Println("No unread notifications.")
		return nil
	}
	for _, n := range notifications {
		chatName := n.ChatID
		if n.Chat != nil && n.Chat.Name != "" {
			chatName = n.Chat.Name
		}
		fmt.Printf("%s  chat=%s  count=%d  message=%s  at=%s\n",
			n.ID, chatName, n.Count, n.MessageID, n.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}
