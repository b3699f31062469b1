package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// SupabaseService resolves reviewer profiles from the Supabase auth schema's
// mirror table. Profile rows are written by a database trigger on signup.
type SupabaseService struct {
	client *supabase.Client
	logger *zap.SugaredLogger
}

// NewSupabaseService creates the service with the project's service key so
// profile lookups bypass row level security.
func NewSupabaseService(cfg config.SupabaseConfig) (*SupabaseService, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	return &SupabaseService{
		client: client,
		logger: logger.GetLogger().Named("supabase"),
	}, nil
}

// GetReviewerProfile fetches one reviewer's profile by user ID.
func (s *SupabaseService) GetReviewerProfile(ctx context.Context, reviewerID string) (*types.ReviewerProfile, error) {
	data, _, err := s.client.From("reviewer_profiles").
		Select("id, email, full_name", "", false).
		Eq("id", reviewerID).
		Single().
		Execute()
	if err != nil {
		s.logger.Warnw("Reviewer profile lookup failed",
			"reviewerId", reviewerID, "error", err)
		return nil, fmt.Errorf("fetch reviewer profile: %w", err)
	}

	var profile types.ReviewerProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decode reviewer profile: %w", err)
	}
	if profile.ID == "" {
		profile.ID = reviewerID
	}

	return &profile, nil
}
