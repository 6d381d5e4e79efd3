// cmd/seed loads a JSON fixture of users, organizations, teams and tasks into
// the database. Usage:
//
//	go run ./cmd/seed -file fixtures.json            # DATABASE_URL (Postgres)
//	go run ./cmd/seed -file fixtures.json -sqlite dev.db
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"taskhub/config"
	"taskhub/database"
	"taskhub/logging"
	"taskhub/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Fixture struct {
	Users         []UserFixture `json:"users"`
	Organizations []OrgFixture  `json:"organizations"`
	Tasks         []TaskFixture `json:"tasks"`
}

type UserFixture struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Manager  string `json:"manager"`
}

type MemberFixture struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type OrgFixture struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Members     []MemberFixture `json:"members"`
	Teams       []TeamFixture   `json:"teams"`
}

type TeamFixture struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Members     []MemberFixture `json:"members"`
}

type TaskFixture struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	Visibility   string `json:"visibility"`
	Creator      string `json:"creator"`
	Assignee     string `json:"assignee"`
	Organization string `json:"organization"`
	Team         string `json:"team"`
	DueInDays    *int   `json:"dueInDays"`
}

type Summary struct {
	Users, Organizations, Memberships, Teams, TeamMembers, Tasks int
}

func main() {
	file := flag.String("file", "./cmd/seed/testdata/fixture.json", "JSON fixture to load")
	sqlitePath := flag.String("sqlite", "", "load into this SQLite file instead of DATABASE_URL")
	batchSize := flag.Int("batch", 500, "rows per insert batch")
	flag.Parse()

	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := open(cfg, *sqlitePath, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("failed to read fixture", zap.String("file", *file), zap.Error(err))
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		log.Fatal("failed to parse fixture", zap.Error(err))
	}

	summary, err := Seed(db, fx, *batchSize, log)
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	log.Info("seed completed",
		zap.Int("users", summary.Users),
		zap.Int("organizations", summary.Organizations),
		zap.Int("teams", summary.Teams),
		zap.Int("tasks", summary.Tasks))
}

func open(cfg *config.Config, sqlitePath string, log *zap.Logger) (*gorm.DB, error) {
	if sqlitePath == "" {
		return database.Open(cfg.DatabaseURL, false, log)
	}
	db, err := gorm.Open(sqlite.Open(sqlitePath), database.Config(logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", sqlitePath, err)
	}
	if err := database.Migrate(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// Seed inserts the fixture in one transaction. Users are referenced by email
// and organizations and teams by name.
func Seed(db *gorm.DB, fx Fixture, batchSize int, log *zap.Logger) (Summary, error) {
	log = logging.OrNop(log)
	if batchSize <= 0 {
		batchSize = 500
	}
	var sum Summary

	err := db.Transaction(func(tx *gorm.DB) error {
		users, err := seedUsers(tx, fx.Users, batchSize)
		if err != nil {
			return err
		}
		sum.Users = len(users)
		log.Info("inserted users", zap.Int("count", len(users)))

		orgs := map[string]string{}
		teams := map[string]string{}
		for _, of := range fx.Organizations {
			owner, ok := users[strings.ToLower(of.Owner)]
			if !ok {
				return fmt.Errorf("organization %q: unknown owner %q", of.Name, of.Owner)
			}
			org := models.Organization{Name: of.Name, Description: of.Description, CreatorID: owner}
			if err := tx.Create(&org).Error; err != nil {
				return fmt.Errorf("create organization %q: %w", of.Name, err)
			}
			orgs[of.Name] = org.ID
			sum.Organizations++

			members := []models.Membership{{OrganizationID: org.ID, UserID: owner, Role: models.OrgRoleOwner}}
			for _, m := range of.Members {
				id, ok := users[strings.ToLower(m.Email)]
				if !ok {
					return fmt.Errorf("organization %q: unknown member %q", of.Name, m.Email)
				}
				if id == owner {
					continue
				}
				role := models.OrgRole(strings.ToUpper(m.Role))
				if role == "" {
					role = models.OrgRoleMember
				}
				members = append(members, models.Membership{OrganizationID: org.ID, UserID: id, Role: role})
			}
			if err := tx.CreateInBatches(&members, batchSize).Error; err != nil {
				return fmt.Errorf("add members to %q: %w", of.Name, err)
			}
			sum.Memberships += len(members)

			for _, tf := range of.Teams {
				n, teamID, err := seedTeam(tx, org, tf, users, batchSize)
				if err != nil {
					return err
				}
				teams[of.Name+"/"+tf.Name] = teamID
				sum.Teams++
				sum.TeamMembers += n
			}
		}

		n, err := seedTasks(tx, fx.Tasks, users, orgs, teams, batchSize)
		if err != nil {
			return err
		}
		sum.Tasks = n
		return nil
	})
	return sum, err
}

func seedUsers(tx *gorm.DB, fixtures []UserFixture, batchSize int) (map[string]string, error) {
	users := make([]models.User, 0, len(fixtures))
	for _, uf := range fixtures {
		role := models.RoleUser
		if uf.Role != "" {
			r, ok := models.ParseRole(uf.Role)
			if !ok {
				return nil, fmt.Errorf("user %q: invalid role %q", uf.Email, uf.Role)
			}
			role = r
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(uf.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", uf.Email, err)
		}
		users = append(users, models.User{
			Email:        strings.ToLower(strings.TrimSpace(uf.Email)),
			PasswordHash: string(hash),
			Name:         uf.Name,
			Role:         role,
			IsActive:     true,
		})
	}
	if len(users) > 0 {
		if err := tx.CreateInBatches(&users, batchSize).Error; err != nil {
			return nil, fmt.Errorf("insert users: %w", err)
		}
	}

	byEmail := make(map[string]string, len(users))
	for _, u := range users {
		byEmail[u.Email] = u.ID
	}
	for _, uf := range fixtures {
		if uf.Manager == "" {
			continue
		}
		managerID, ok := byEmail[strings.ToLower(uf.Manager)]
		if !ok {
			return nil, fmt.Errorf("user %q: unknown manager %q", uf.Email, uf.Manager)
		}
		err := tx.Model(&models.User{}).Where("id = ?", byEmail[strings.ToLower(uf.Email)]).
			Update("manager_id", managerID).Error
		if err != nil {
			return nil, fmt.Errorf("set manager of %q: %w", uf.Email, err)
		}
	}
	return byEmail, nil
}

// seedTeam creates the team; its first member is the leader unless roles say otherwise.
func seedTeam(tx *gorm.DB, org models.Organization, tf TeamFixture, users map[string]string, batchSize int) (int, string, error) {
	if len(tf.Members) == 0 {
		return 0, "", fmt.Errorf("team %q: needs at least one member", tf.Name)
	}
	team := models.Team{OrganizationID: org.ID, Name: tf.Name, Description: tf.Description, CreatorID: org.CreatorID}
	if err := tx.Create(&team).Error; err != nil {
		return 0, "", fmt.Errorf("create team %q: %w", tf.Name, err)
	}

	now := time.Now().UTC()
	members := make([]models.TeamMember, 0, len(tf.Members))
	hasLeader := false
	for _, m := range tf.Members {
		id, ok := users[strings.ToLower(m.Email)]
		if !ok {
			return 0, "", fmt.Errorf("team %q: unknown member %q", tf.Name, m.Email)
		}
		role := models.TeamRole(strings.ToUpper(m.Role))
		if role == "" {
			role = models.TeamRoleMember
		}
		hasLeader = hasLeader || role == models.TeamRoleLeader
		members = append(members, models.TeamMember{TeamID: team.ID, UserID: id, Role: role, JoinedAt: now})
	}
	if !hasLeader {
		members[0].Role = models.TeamRoleLeader
	}
	if err := tx.CreateInBatches(&members, batchSize).Error; err != nil {
		return 0, "", fmt.Errorf("add members to team %q: %w", tf.Name, err)
	}
	return len(members), team.ID, nil
}

func seedTasks(tx *gorm.DB, fixtures []TaskFixture, users, orgs, teams map[string]string, batchSize int) (int, error) {
	now := time.Now().UTC()
	tasks := make([]models.Task, 0, len(fixtures))
	for _, tf := range fixtures {
		creator, ok := users[strings.ToLower(tf.Creator)]
		if !ok {
			return 0, fmt.Errorf("task %q: unknown creator %q", tf.Title, tf.Creator)
		}
		task := models.Task{
			Title:       tf.Title,
			Description: tf.Description,
			Priority:    models.Priority(strings.ToUpper(tf.Priority)),
			Status:      models.TaskStatus(strings.ToUpper(tf.Status)),
			Visibility:  models.Visibility(strings.ToUpper(tf.Visibility)),
			CreatorID:   creator,
		}
		if task.Priority == "" {
			task.Priority = models.PriorityMedium
		}
		if task.Status == "" {
			task.Status = models.StatusTodo
		}
		if task.Visibility == "" {
			task.Visibility = models.VisibilityPrivate
		}
		if !task.Priority.Valid() || !task.Status.Valid() || !task.Visibility.Valid() {
			return 0, fmt.Errorf("task %q: invalid priority, status or visibility", tf.Title)
		}
		if tf.Assignee != "" {
			id, ok := users[strings.ToLower(tf.Assignee)]
			if !ok {
				return 0, fmt.Errorf("task %q: unknown assignee %q", tf.Title, tf.Assignee)
			}
			task.AssignedToID = &id
		}
		if tf.Organization != "" {
			id, ok := orgs[tf.Organization]
			if !ok {
				return 0, fmt.Errorf("task %q: unknown organization %q", tf.Title, tf.Organization)
			}
			task.OrganizationID = &id
			if tf.Team != "" {
				teamID, ok := teams[tf.Organization+"/"+tf.Team]
				if !ok {
					return 0, fmt.Errorf("task %q: unknown team %q", tf.Title, tf.Team)
				}
				task.TeamID = &teamID
			}
		} else if task.Visibility != models.VisibilityPrivate {
			return 0, fmt.Errorf("task %q: individual tasks must be PRIVATE", tf.Title)
		}
		if tf.DueInDays != nil {
			due := now.AddDate(0, 0, *tf.DueInDays)
			task.DueDate = &due
		}
		tasks = append(tasks, task)
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	if err := tx.CreateInBatches(&tasks, batchSize).Error; err != nil {
		return 0, fmt.Errorf("insert tasks: %w", err)
	}

	history := make([]models.TaskHistory, 0, len(tasks))
	for _, t := range tasks {
		status := string(t.Status)
		history = append(history, models.TaskHistory{
			TaskID:   t.ID,
			UserID:   t.CreatorID,
			Action:   models.HistoryCreated,
			Field:    "status",
			NewValue: &status,
		})
	}
	if err := tx.CreateInBatches(&history, batchSize).Error; err != nil {
		return 0, fmt.Errorf("insert task history: %w", err)
	}
	return len(tasks), nil
}
