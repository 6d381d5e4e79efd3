package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"taskhub/models"
	"taskhub/testutil"
)

func loadFixture(t *testing.T) Fixture {
	t.Helper()
	data, err := os.ReadFile("testdata/fixture.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return fx
}

func TestSeed(t *testing.T) {
	db := testutil.SetupTestDB(t)

	sum, err := Seed(db, loadFixture(t), 2, nil)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	want := Summary{Users: 4, Organizations: 1, Memberships: 3, Teams: 1, TeamMembers: 2, Tasks: 4}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}

	var dev models.User
	if err := db.Where("email = ?", "dev@taskhub.local").First(&dev).Error; err != nil {
		t.Fatalf("load dev: %v", err)
	}
	if dev.ManagerID == nil {
		t.Error("manager not set")
	}

	var ci models.Task
	if err := db.Where("title = ?", "Set up CI").First(&ci).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	if ci.TeamID == nil || ci.AssignedToID == nil || *ci.AssignedToID != dev.ID || ci.DueDate == nil {
		t.Errorf("task = %+v", ci)
	}

	var history int64
	db.Model(&models.TaskHistory{}).Where("action = ?", models.HistoryCreated).Count(&history)
	if history != 4 {
		t.Errorf("created history rows = %d, want 4", history)
	}
}

func TestSeed_RollsBackOnBadReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := loadFixture(t)
	fx.Tasks = append(fx.Tasks, TaskFixture{Title: "orphan", Creator: "nobody@taskhub.local"})

	_, err := Seed(db, fx, 100, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown creator") {
		t.Fatalf("err = %v, want unknown creator", err)
	}

	var users int64
	db.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Errorf("users after failed seed = %d, want 0", users)
	}
}
