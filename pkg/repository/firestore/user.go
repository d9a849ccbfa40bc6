package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userDocument struct {
	ID          string              `firestore:"id"`
	GoogleID    string              `firestore:"google_id"`
	DisplayName string              `firestore:"display_name"`
	Email       string              `firestore:"email"`
	Photo       string              `firestore:"photo,omitempty"`
	FitTokens   *tokenBundleDoc     `firestore:"fitness_tokens,omitempty"`
	Metrics     *metricsSnapshotDoc `firestore:"fitness_metrics,omitempty"`
	StepCount   *legacyStepCountDoc `firestore:"step_count,omitempty"`
	StepHistory []dailyStepsDoc     `firestore:"step_history,omitempty"`
	CreatedAt   time.Time           `firestore:"created_at"`
}

type tokenBundleDoc struct {
	AccessToken  string `firestore:"access_token"`
	RefreshToken string `firestore:"refresh_token,omitempty"`
	TokenType    string `firestore:"token_type,omitempty"`
	Scope        string `firestore:"scope,omitempty"`
	ExpiryDate   int64  `firestore:"expiry_date,omitempty"`
}

type metricsSnapshotDoc struct {
	Steps         int64     `firestore:"steps"`
	Calories      float64   `firestore:"calories"`
	ActiveMinutes int64     `firestore:"active_minutes"`
	LastUpdated   time.Time `firestore:"last_updated"`
}

type legacyStepCountDoc struct {
	Count       int64     `firestore:"count"`
	LastUpdated time.Time `firestore:"last_updated"`
}

type dailyStepsDoc struct {
	Date  string `firestore:"date"`
	Steps int64  `firestore:"steps"`
}

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *userRepository) usersCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_users"
	}
	return "users"
}

func userToDocument(user *model.User) *userDocument {
	doc := &userDocument{
		ID:          string(user.ID),
		GoogleID:    user.GoogleID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Photo:       user.Photo,
		CreatedAt:   user.CreatedAt,
	}

	doc.FitTokens = bundleToDoc(user.FitTokens)
	if user.Metrics != nil {
		doc.Metrics = metricsToDoc(user.Metrics)
	}
	if user.StepCount != nil {
		doc.StepCount = legacyToDoc(user.StepCount)
	}
	doc.StepHistory = historyToDoc(user.StepHistory)

	return doc
}

func userToModel(doc *userDocument) *model.User {
	user := &model.User{
		ID:          types.UserID(doc.ID),
		GoogleID:    doc.GoogleID,
		DisplayName: doc.DisplayName,
		Email:       doc.Email,
		Photo:       doc.Photo,
		CreatedAt:   doc.CreatedAt,
	}

	if doc.FitTokens != nil {
		user.FitTokens = &model.TokenBundle{
			AccessToken:  doc.FitTokens.AccessToken,
			RefreshToken: doc.FitTokens.RefreshToken,
			TokenType:    doc.FitTokens.TokenType,
			Scope:        doc.FitTokens.Scope,
			ExpiryDate:   doc.FitTokens.ExpiryDate,
		}
	}
	if doc.Metrics != nil {
		user.Metrics = &model.MetricsSnapshot{
			Steps:         doc.Metrics.Steps,
			Calories:      doc.Metrics.Calories,
			ActiveMinutes: doc.Metrics.ActiveMinutes,
			LastUpdated:   doc.Metrics.LastUpdated,
		}
	}
	if doc.StepCount != nil {
		user.StepCount = &model.LegacyStepCount{
			Count:       doc.StepCount.Count,
			LastUpdated: doc.StepCount.LastUpdated,
		}
	}
	if len(doc.StepHistory) > 0 {
		user.StepHistory = make([]model.DailySteps, len(doc.StepHistory))
		for i, d := range doc.StepHistory {
			user.StepHistory[i] = model.DailySteps{Date: d.Date, Steps: d.Steps}
		}
	}

	return user
}

func bundleToDoc(b *model.TokenBundle) *tokenBundleDoc {
	if b == nil {
		return nil
	}
	return &tokenBundleDoc{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    b.TokenType,
		Scope:        b.Scope,
		ExpiryDate:   b.ExpiryDate,
	}
}

func metricsToDoc(m *model.MetricsSnapshot) *metricsSnapshotDoc {
	return &metricsSnapshotDoc{
		Steps:         m.Steps,
		Calories:      m.Calories,
		ActiveMinutes: m.ActiveMinutes,
		LastUpdated:   m.LastUpdated,
	}
}

func legacyToDoc(c *model.LegacyStepCount) *legacyStepCountDoc {
	return &legacyStepCountDoc{
		Count:       c.Count,
		LastUpdated: c.LastUpdated,
	}
}

func historyToDoc(history []model.DailySteps) []dailyStepsDoc {
	if len(history) == 0 {
		return nil
	}
	docs := make([]dailyStepsDoc, len(history))
	for i, d := range history {
		docs[i] = dailyStepsDoc{Date: d.Date, Steps: d.Steps}
	}
	return docs
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid user ID")
	}

	doc, err := r.client.Collection(r.usersCollection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, goerr.Wrap(err, "failed to get user from firestore", goerr.V("user_id", id))
	}

	var data userDocument
	if err := doc.DataTo(&data); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user document")
	}

	return userToModel(&data), nil
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, goerr.New("google ID is empty")
	}

	iter := r.client.Collection(r.usersCollection()).
		Where("google_id", "==", googleID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user by google ID")
	}

	var data userDocument
	if err := doc.DataTo(&data); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user document")
	}

	return userToModel(&data), nil
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user")
	}

	docRef := r.client.Collection(r.usersCollection()).Doc(user.ID.String())
	if _, err := docRef.Set(ctx, userToDocument(user)); err != nil {
		return goerr.Wrap(err, "failed to put user to firestore", goerr.V("user_id", user.ID))
	}

	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	iter := r.client.Collection(r.usersCollection()).Documents(ctx)
	defer iter.Stop()

	var users []*model.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}

		var data userDocument
		if err := doc.DataTo(&data); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal user document")
		}
		users = append(users, userToModel(&data))
	}

	return users, nil
}

// update applies per-field atomic updates to one user document.
func (r *userRepository) update(ctx context.Context, id types.UserID, updates []firestore.Update) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user ID")
	}

	docRef := r.client.Collection(r.usersCollection()).Doc(id.String())
	if _, err := docRef.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return goerr.Wrap(err, "failed to update user document", goerr.V("user_id", id))
	}

	return nil
}

func (r *userRepository) UpdateFitTokens(ctx context.Context, id types.UserID, bundle *model.TokenBundle) error {
	var value any = firestore.Delete
	if bundle != nil {
		value = bundleToDoc(bundle)
	}
	return r.update(ctx, id, []firestore.Update{
		{Path: "fitness_tokens", Value: value},
	})
}

func (r *userRepository) UpdateMetrics(ctx context.Context, id types.UserID, metrics *model.MetricsSnapshot) error {
	if metrics == nil {
		return goerr.New("metrics snapshot is nil", goerr.V("user_id", id))
	}
	return r.update(ctx, id, []firestore.Update{
		{Path: "fitness_metrics", Value: metricsToDoc(metrics)},
		{Path: "step_count", Value: &legacyStepCountDoc{
			Count:       metrics.Steps,
			LastUpdated: metrics.LastUpdated,
		}},
	})
}

func (r *userRepository) UpdateStepData(ctx context.Context, id types.UserID, count *model.LegacyStepCount, history []model.DailySteps) error {
	if count == nil {
		return goerr.New("step count is nil", goerr.V("user_id", id))
	}
	var historyValue any = firestore.Delete
	if len(history) > 0 {
		historyValue = historyToDoc(history)
	}
	return r.update(ctx, id, []firestore.Update{
		{Path: "step_count", Value: legacyToDoc(count)},
		{Path: "step_history", Value: historyValue},
	})
}

func (r *userRepository) ClearFitness(ctx context.Context, id types.UserID) error {
	return r.update(ctx, id, []firestore.Update{
		{Path: "fitness_tokens", Value: firestore.Delete},
		{Path: "fitness_metrics", Value: firestore.Delete},
		{Path: "step_count", Value: firestore.Delete},
	})
}
