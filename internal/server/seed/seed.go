// Package seed loads an initial catalog of admins, members and spin items
// from a YAML file. Seeding is idempotent: rows that already exist are left
// alone.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository"
	"github.com/KreatechIT/mrs-sub000/internal/server/service"
)

type File struct {
	Admins []struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"admins"`
	Members []struct {
		Username  string `yaml:"username"`
		Tier      string `yaml:"tier"`
		Points    int64  `yaml:"points"`
		LoginCode string `yaml:"login_code"`
	} `yaml:"members"`
	Items []struct {
		RewardName  string  `yaml:"reward_name"`
		Probability float64 `yaml:"probability"`
		Unlimited   bool    `yaml:"unlimited"`
		Quantity    int64   `yaml:"quantity"`
	} `yaml:"items"`
	// Sequence places the seeded items on the wheel in file order.
	Sequence bool `yaml:"sequence"`
}

func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

// Apply seeds the repository from the YAML file at path. An empty path is a
// no-op.
func Apply(ctx context.Context, repo service.Repository, services *service.Services, path string, log *zap.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return err
	}

	for _, a := range f.Admins {
		if _, err := services.Auth.RegisterAdmin(ctx, a.Username, a.Password); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed admin %s: %w", a.Username, err)
		}
		log.Info("seeded admin", zap.String("username", a.Username))
	}

	for _, m := range f.Members {
		tier := m.Tier
		if tier == "" {
			tier = "bronze"
		}
		_, err := repo.CreateMember(ctx, models.Member{
			Username:      m.Username,
			Tier:          tier,
			CurrentPoints: m.Points,
			LoginCode:     m.LoginCode,
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed member %s: %w", m.Username, err)
		}
		log.Info("seeded member", zap.String("username", m.Username))
	}

	existing, err := repo.ListItems(ctx, true)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, it := range f.Items {
		created, err := repo.CreateItem(ctx, models.SpinItem{
			RewardName:  it.RewardName,
			Probability: it.Probability,
			Unlimited:   it.Unlimited,
			Quantity:    it.Quantity,
		})
		if err != nil {
			return fmt.Errorf("seed item %s: %w", it.RewardName, err)
		}
		if f.Sequence {
			if _, err := repo.CreateSequence(ctx, created.UUID); err != nil {
				return fmt.Errorf("seed sequence for %s: %w", it.RewardName, err)
			}
		}
		log.Info("seeded item", zap.String("reward", it.RewardName))
	}
	return nil
}
