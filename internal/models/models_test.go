package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
)

func TestIsValidStatus(t *testing.T) {
	valid := []string{StatusTodo, StatusInProgress, StatusDone}
	for _, status := range valid {
		if !IsValidStatus(status) {
			t.Errorf("Expected %q to be a valid status", status)
		}
	}

	invalid := []string{"", "pending", "completed", "TODO", "done "}
	for _, status := range invalid {
		if IsValidStatus(status) {
			t.Errorf("Expected %q to be an invalid status", status)
		}
	}
}

func TestIsValidPriority(t *testing.T) {
	valid := []string{PriorityLow, PriorityMedium, PriorityHigh}
	for _, priority := range valid {
		if !IsValidPriority(priority) {
			t.Errorf("Expected %q to be a valid priority", priority)
		}
	}

	invalid := []string{"", "urgent", "Medium"}
	for _, priority := range invalid {
		if IsValidPriority(priority) {
			t.Errorf("Expected %q to be an invalid priority", priority)
		}
	}
}

func TestUserPasswordNeverSerialized(t *testing.T) {
	user := User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "$2a$12$hashhashhash",
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Failed to marshal user: %v", err)
	}
	if strings.Contains(string(data), "hashhashhash") {
		t.Error("Password hash leaked into JSON output")
	}

	profile, err := json.Marshal(user.Profile())
	if err != nil {
		t.Fatalf("Failed to marshal profile: %v", err)
	}
	if strings.Contains(string(profile), "hashhashhash") {
		t.Error("Password hash leaked into profile JSON")
	}
	if !strings.Contains(string(profile), "alice@example.com") {
		t.Error("Profile should carry the email")
	}
}

func TestTaskSoftDeleteFieldsConsistent(t *testing.T) {
	task := Task{Title: "A task"}

	if task.IsDeleted {
		t.Error("New task should not be marked deleted")
	}
	if task.DeletedAt != nil {
		t.Error("New task should have a nil DeletedAt")
	}
}
