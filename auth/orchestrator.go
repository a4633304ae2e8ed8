// Package auth coordinates farmer registration and login across the
// identity provider and the local profile store.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"farmledger/apperr"
	"farmledger/identity"
	"farmledger/models"
	"farmledger/mq"
	"farmledger/store"
)

const (
	msgMissingFields      = "Missing required fields: username, email, password, contactNo"
	msgRegistrationFailed = "Internal server error during registration"
	msgInvalidCredentials = "Invalid email or password"
	msgProfileMissing     = "Farmer profile not found for this account"
	msgLoginFailed        = "Internal server error during login"
)

type RegisterInput struct {
	Username  string
	ContactNo string
	Email     string
	Password  string
	FarmName  string
	TotalArea string
	Location  string
	SensorID  string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Farmer    *models.FarmerProfile
}

type Orchestrator struct {
	gateway  identity.Gateway
	profiles store.Farmers
	events   mq.Emitter
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithEmitter(e mq.Emitter) Option {
	return func(o *Orchestrator) { o.events = e }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(g identity.Gateway, profiles store.Farmers, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:  g,
		profiles: profiles,
		events:   mq.Nop{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register creates the provider identity and then the local profile. If the
// profile write fails the identity is deleted again; the caller always sees
// the profile failure, whatever the rollback outcome.
func (o *Orchestrator) Register(ctx context.Context, in RegisterInput) (*models.FarmerProfile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ContactNo = strings.TrimSpace(in.ContactNo)
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ContactNo == "" {
		return nil, apperr.Validation(msgMissingFields)
	}

	authID, err := o.gateway.CreateIdentity(ctx, in.Email, in.Password, map[string]any{
		"username":  in.Username,
		"contactNo": in.ContactNo,
	})
	if err != nil {
		var rejected *identity.RejectedError
		if errors.As(err, &rejected) {
			o.logger.Info("signup rejected by identity provider",
				zap.String("email", in.Email), zap.Int("status", rejected.Status))
			return nil, apperr.AuthProvider(rejected.Message, err)
		}
		o.logger.Error("identity provider signup failed", zap.String("email", in.Email), zap.Error(err))
		return nil, apperr.AuthProvider("Identity provider unavailable", err)
	}

	now := o.now().UTC()
	farmer := &models.FarmerProfile{
		AuthID:    authID,
		Username:  in.Username,
		ContactNo: in.ContactNo,
		Email:     in.Email,
		FarmName:  in.FarmName,
		TotalArea: in.TotalArea,
		Location:  in.Location,
		SensorID:  in.SensorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.profiles.InsertFarmer(ctx, farmer); err != nil {
		o.logger.Error("farmer profile write failed, rolling back identity",
			zap.String("auth_id", authID), zap.String("email", in.Email), zap.Error(err))
		o.rollback(ctx, authID)
		return nil, apperr.Internal(msgRegistrationFailed, err)
	}
	return farmer, nil
}

func (o *Orchestrator) rollback(ctx context.Context, authID string) {
	// The request context may already be cancelled; the compensation must
	// still get a chance to run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	outcome := "succeeded"
	if err := o.gateway.DeleteIdentity(ctx, authID); err != nil {
		outcome = "failed"
		o.logger.Error("identity rollback failed, orphaned identity left behind",
			zap.String("auth_id", authID), zap.Error(err))
	} else {
		o.logger.Info("identity rolled back", zap.String("auth_id", authID))
	}
	o.events.Emit(ctx, mq.IdentityRollback, mq.Index{
		EntityType: "identity",
		Method:     outcome,
		EntityId:   authID,
		OwnerId:    authID,
		Date:       o.now().UTC(),
	})
}

// Login authenticates against the provider and loads the local profile.
// Unknown email and wrong password produce the same error.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Missing required fields: email, password")
	}

	sess, err := o.gateway.Authenticate(ctx, email, password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return nil, apperr.Unauthenticated(msgInvalidCredentials)
	}
	if err != nil {
		o.logger.Error("identity provider login failed", zap.Error(err))
		return nil, apperr.Internal(msgLoginFailed, err)
	}

	farmer, err := o.profiles.FindFarmerByAuthID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		o.logger.Warn("identity has no local profile", zap.String("auth_id", sess.UserID))
		return nil, apperr.ProfileMissing(msgProfileMissing)
	}
	if err != nil {
		o.logger.Error("farmer profile lookup failed", zap.String("auth_id", sess.UserID), zap.Error(err))
		return nil, apperr.Internal(msgLoginFailed, err)
	}

	return &LoginResult{Token: sess.AccessToken, ExpiresAt: sess.ExpiresAt, Farmer: farmer}, nil
}
