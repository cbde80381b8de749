package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSender appends notifications to a log file.
type FileSender struct {
	filePath string
}

// NewFileSender creates a new FileSender, ensuring the directory exists.
func NewFileSender(filePath string) (Sender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("notification log file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for notification log file '%s': %w", dir, err)
	}

	return &FileSender{filePath: filePath}, nil
}

// Send writes the message to the configured file.
func (s *FileSender) Send(ctx context.Context, msg Message) error {
	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("FileSender: Failed to open log file '%s': %v", s.filePath, err)
		return fmt.Errorf("failed to open notification log file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- Notification at %s (To: %s, Subject: %s) ---\n%s\n--- End ---\n\n",
		time.Now().Format(time.RFC3339Nano), msg.To, msg.Subject, msg.Body)

	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write notification to log file: %w", err)
	}
	return nil
}
