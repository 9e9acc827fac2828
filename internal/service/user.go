package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// UserService handles accounts and subscriptions.
type UserService struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ IUserService = (*UserService)(nil)

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{db: db, log: log.With("service", "user")}
}

// CreateUser registers a new account. Taken emails and usernames come back
// as field errors alongside any other payload problems.
func (s *UserService) CreateUser(ctx context.Context, req *types.CreateUserRequest) (*types.UserResponse, error) {
	errs := validation.FieldErrors{}
	if structErrs := validation.ValidateStruct(req); structErrs != nil {
		errs.Merge(structErrs)
	}

	db := s.db.WithContext(ctx)
	if !errs.Has("email") {
		taken, err := s.exists(db, "LOWER(email) = ?", strings.ToLower(req.Email))
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("email", "a user with this email already exists")
		}
	}
	if !errs.Has("username") {
		taken, err := s.exists(db, "username = ?", req.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("username", "a user with this username already exists")
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, translateDBError(err, "create user")
	}

	s.log.Info("user registered", "user_id", user.ID)
	resp := userResponse(&user, false)
	return &resp, nil
}

func (s *UserService) exists(db *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, translateDBError(err, "check user")
	}
	return count > 0, nil
}

// GetUser returns user id as seen by viewerID (0 for anonymous).
func (s *UserService) GetUser(ctx context.Context, viewerID, id uint) (*types.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("user %d", id))
	}

	subscribed, err := subscribedAuthors(s.db.WithContext(ctx), viewerID, []uint{user.ID})
	if err != nil {
		return nil, err
	}
	resp := userResponse(&user, subscribed[user.ID])
	return &resp, nil
}

func (s *UserService) ListUsers(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, translateDBError(err, "count users")
	}

	var users []models.User
	if err := db.Order("id").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, 0, translateDBError(err, "list users")
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := subscribedAuthors(db, viewerID, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]types.UserResponse, len(users))
	for i := range users {
		out[i] = userResponse(&users[i], subscribed[users[i].ID])
	}
	return out, total, nil
}

// SetPassword replaces the password of userID after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error {
	if errs := validation.ValidateStruct(req); errs != nil {
		return errs
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return translateDBError(err, fmt.Sprintf("user %d", userID))
	}
	if !checkPassword(user.PasswordHash, req.CurrentPassword) {
		return validation.FieldErrors{"current_password": {"current password is incorrect"}}
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := db.Model(&user).Update("password_hash", hash).Error; err != nil {
		return translateDBError(err, "set password")
	}
	s.log.Info("password changed", "user_id", userID)
	return nil
}

// Subscribe makes userID follow authorID. Following yourself or following
// twice is an error, not a no-op.
func (s *UserService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("author %d", authorID))
	}
	if userID == authorID {
		return nil, ErrSelfSubscription
	}

	var count int64
	if err := db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return nil, translateDBError(err, "check subscription")
	}
	if count > 0 {
		return nil, fmt.Errorf("already subscribed to %s: %w", author.Username, ErrConflict)
	}

	if err := db.Create(&models.Subscription{UserID: userID, AuthorID: authorID}).Error; err != nil {
		return nil, translateDBError(err, "subscribe")
	}

	return s.subscriptionResponse(db, &author, recipesLimit)
}

// Unsubscribe removes the subscription of userID to authorID, failing with
// ErrConflict when there is none.
func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		return translateDBError(err, fmt.Sprintf("author %d", authorID))
	}

	res := db.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Subscription{})
	if res.Error != nil {
		return translateDBError(res.Error, "unsubscribe")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("not subscribed to %s: %w", author.Username, ErrConflict)
	}
	return nil
}

// Subscriptions lists the authors userID follows, each with at most
// recipesLimit of their newest recipes (all of them when recipesLimit <= 0).
func (s *UserService) Subscriptions(ctx context.Context, userID uint, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	db := s.db.WithContext(ctx)
	base := db.Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translateDBError(err, "count subscriptions")
	}

	var authors []models.User
	if err := base.Session(&gorm.Session{}).
		Order("subscriptions.id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&authors).Error; err != nil {
		return nil, 0, translateDBError(err, "list subscriptions")
	}

	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		resp, err := s.subscriptionResponse(db, &authors[i], recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *resp)
	}
	return out, total, nil
}

func (s *UserService) subscriptionResponse(db *gorm.DB, author *models.User, recipesLimit int) (*types.SubscriptionResponse, error) {
	var count int64
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
		return nil, translateDBError(err, "count recipes")
	}

	q := db.Where("author_id = ?", author.ID).Order("created_at DESC").Order("id DESC")
	if recipesLimit > 0 {
		q = q.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, translateDBError(err, "list author recipes")
	}

	short := make([]types.RecipeShort, len(recipes))
	for i := range recipes {
		short[i] = recipeShort(&recipes[i])
	}
	return &types.SubscriptionResponse{
		UserResponse: userResponse(author, true),
		Recipes:      short,
		RecipesCount: count,
	}, nil
}

// subscribedAuthors reports which of authorIDs viewerID follows.
func subscribedAuthors(db *gorm.DB, viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(authorIDs))
	if viewerID == 0 || len(authorIDs) == 0 {
		return out, nil
	}

	var ids []uint
	err := db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", viewerID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateDBError(err, "load subscriptions")
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func userResponse(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}
