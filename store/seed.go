package store

import (
	"chat-hub/domain"
	"fmt"
)

// Seed fills an empty store with demo fixtures: a handful of users, a direct
// chat between the first user and each contact, and a few sample messages.
// Events emitted while seeding flow through the pipeline like any other
// write, so seeded data reaches the disk sink and the indexes.
func Seed(s *Store, hash func(password string) (string, error)) error {
	passwordHash, err := hash("password")
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	fixtures := []NewUser{
		{Username: "bhaiya", DisplayName: "Bhaiya",
			Avatar: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=100&h=100"},
		{Username: "papa_ji", DisplayName: "Papa Ji",
			Avatar: "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=100&h=100"},
		{Username: "gaurav_sir", DisplayName: "Gaurav Sir Mindstein Software",
			Avatar: "https://images.unsplash.com/photo-1519085360753-af0119f7cbe7?w=100&h=100"},
		{Username: "acciojob", DisplayName: "AccioJob",
			Avatar: "https://images.unsplash.com/photo-1549924231-f129b911e442?w=100&h=100"},
		{Username: "sarah", DisplayName: "Sarah Johnson",
			Avatar: "https://images.unsplash.com/photo-1494790108755-2616b612b776?w=100&h=100"},
		{Username: "alex", DisplayName: "Alex Chen",
			Avatar: "https://images.unsplash.com/photo-1507591064344-4c6ce005b128?w=100&h=100"},
	}

	users := make([]domain.User, 0, len(fixtures))
	for _, f := range fixtures {
		f.PasswordHash = passwordHash
		user, err := s.CreateUser(f)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		users = append(users, user)
	}

	owner := users[0]
	samples := []struct {
		contact  domain.User
		content  string
		kind     domain.MessageKind
		metadata map[string]any
	}{
		{users[1], "Beta, did you eat?", domain.KindText, nil},
		{users[2], "Please check the latest build before standup.", domain.KindText, nil},
		{users[3], "New DSA sheet is live!", domain.KindLink, map[string]any{
			"url":         "https://acciojob.com/dsa-sheet",
			"title":       "DSA Practice Sheet",
			"description": "150 curated problems",
		}},
		{users[4], "Sent you the quarterly report.", domain.KindDocument, map[string]any{
			"fileName": "q3-report.pdf",
			"fileSize": 482133,
			"mimeType": "application/pdf",
		}},
	}

	for _, sample := range samples {
		chat, err := s.CreateChat(NewChat{
			Name:    sample.contact.DisplayName,
			Avatar:  sample.contact.Avatar,
			Members: []domain.UserID{owner.ID, sample.contact.ID},
		})
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if _, err := s.Append(AppendMessage{
			ChatID:   chat.ID,
			SenderID: sample.contact.ID,
			Content:  sample.content,
			Kind:     sample.kind,
			Metadata: sample.metadata,
		}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
