package user

import (
	"context"
	"errors"
	"strings"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"
	"foodgram/internal/utils/imagedata"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/jwt"
	"foodgram/pkg/relation"
	"foodgram/pkg/validation"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const RoleUser = "user"

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.UserProfile, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
		Me(ctx context.Context, userID string) (domain.UserProfile, error)
		GetProfile(ctx context.Context, id string, viewerID string) (domain.UserProfile, error)
		GetUsers(ctx context.Context, page, limit int, viewerID string) (domain.UserListResponse, error)
		SetPassword(ctx context.Context, req domain.SetPasswordRequest, userID string) error
		UpdateAvatar(ctx context.Context, req domain.AvatarRequest, userID string) (domain.AvatarResponse, error)
		DeleteAvatar(ctx context.Context, userID string) error
		Subscribe(ctx context.Context, authorID string, userID string, recipesLimit int) (domain.Subscription, error)
		Unsubscribe(ctx context.Context, authorID string, userID string) error
		GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) (domain.SubscriptionListResponse, error)
	}

	userService struct {
		userRepository  UserRepository
		relationService relation.RelationService
		jwtService      jwt.JWTService
		images          storage.ImageStore
	}
)

func NewUserService(
	userRepository UserRepository,
	relationService relation.RelationService,
	jwtService jwt.JWTService,
	images storage.ImageStore,
) UserService {
	return &userService{
		userRepository:  userRepository,
		relationService: relationService,
		jwtService:      jwtService,
		images:          images,
	}
}

func toUserProfile(u *entities.User) domain.UserProfile {
	return domain.UserProfile{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    u.AvatarURL,
	}
}

func parseUserID(id string) (uuid.UUID, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrUserNotFound
	}
	return userID, nil
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.UserProfile, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	checks := []error{
		validation.StringLength("email", req.Email, validation.EmailMaxLength),
		validation.StringLength("username", req.Username, validation.UserNameMaxLength),
		validation.StringLength("first_name", req.FirstName, validation.UserNameMaxLength),
		validation.StringLength("last_name", req.LastName, validation.UserNameMaxLength),
	}
	for _, err := range checks {
		if err != nil {
			return domain.UserProfile{}, err
		}
	}
	if !utils.ValidUsername(req.Username) {
		return domain.UserProfile{}, domain.NewValidationError("username", "may only contain letters, digits and @/./+/-/_")
	}
	if req.Username == "me" {
		return domain.UserProfile{}, domain.NewValidationError("username", "is reserved")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserProfile{}, err
	}

	user := &entities.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  string(hash),
	}
	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		return domain.UserProfile{}, err
	}
	return toUserProfile(user), nil
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.LoginResponse{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return domain.LoginResponse{}, domain.ErrInvalidCredentials
	}

	return domain.LoginResponse{
		Token: s.jwtService.GenerateTokenUser(user.ID.String(), RoleUser),
	}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (domain.UserProfile, error) {
	return s.GetProfile(ctx, userID, userID)
}

func (s *userService) GetProfile(ctx context.Context, id string, viewerID string) (domain.UserProfile, error) {
	userID, err := parseUserID(id)
	if err != nil {
		return domain.UserProfile{}, err
	}
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	res := toUserProfile(user)
	if viewerID != "" && viewerID != id {
		if res.IsSubscribed, err = s.relationService.Exists(ctx, domain.RelationSubscription, viewerID, id); err != nil {
			return domain.UserProfile{}, err
		}
	}
	return res, nil
}

// GetUsers pages through all users ordered by username. For an
// authenticated viewer each profile carries is_subscribed.
func (s *userService) GetUsers(ctx context.Context, page, limit int, viewerID string) (domain.UserListResponse, error) {
	users, count, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return domain.UserListResponse{}, err
	}

	subscribed := map[uuid.UUID]bool{}
	if viewerID != "" {
		ids := make([]uuid.UUID, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		if subscribed, err = s.relationService.ExistingTargets(ctx, domain.RelationSubscription, viewerID, ids); err != nil {
			return domain.UserListResponse{}, err
		}
	}

	res := domain.UserListResponse{
		Users:      make([]domain.UserProfile, 0, len(users)),
		Pagination: domain.NewPagination(page, limit, count),
	}
	for _, u := range users {
		profile := toUserProfile(u)
		profile.IsSubscribed = subscribed[u.ID]
		res.Users = append(res.Users, profile)
	}
	return res, nil
}

func (s *userService) SetPassword(ctx context.Context, req domain.SetPasswordRequest, userID string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return domain.ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepository.UpdatePassword(ctx, id, string(hash))
}

func (s *userService) UpdateAvatar(ctx context.Context, req domain.AvatarRequest, userID string) (domain.AvatarResponse, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return domain.AvatarResponse{}, err
	}
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return domain.AvatarResponse{}, err
	}

	img, err := imagedata.Decode(req.Avatar)
	if err != nil {
		return domain.AvatarResponse{}, err
	}
	link, err := s.images.Upload(ctx, "avatars", img)
	if err != nil {
		return domain.AvatarResponse{}, err
	}
	if err := s.userRepository.UpdateAvatar(ctx, id, link); err != nil {
		s.dropImage(ctx, link)
		return domain.AvatarResponse{}, err
	}
	if user.AvatarURL != "" {
		s.dropImage(ctx, user.AvatarURL)
	}
	return domain.AvatarResponse{Avatar: link}, nil
}

func (s *userService) DeleteAvatar(ctx context.Context, userID string) error {
	id, err := parseUserID(userID)
	if err != nil {
		return err
	}
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.AvatarURL == "" {
		return nil
	}
	if err := s.userRepository.UpdateAvatar(ctx, id, ""); err != nil {
		return err
	}
	s.dropImage(ctx, user.AvatarURL)
	return nil
}

func (s *userService) dropImage(ctx context.Context, link string) {
	if err := s.images.Delete(ctx, link); err != nil {
		log.Warnf("failed to delete image %s: %v", link, err)
	}
}

func (s *userService) Subscribe(ctx context.Context, authorID string, userID string, recipesLimit int) (domain.Subscription, error) {
	authorUUID, err := parseUserID(authorID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if _, err := s.relationService.Add(ctx, domain.RelationSubscription, userID, authorID); err != nil {
		return domain.Subscription{}, err
	}

	author, err := s.userRepository.GetUserByID(ctx, authorUUID)
	if err != nil {
		return domain.Subscription{}, err
	}
	return s.subscription(ctx, author, recipesLimit)
}

func (s *userService) Unsubscribe(ctx context.Context, authorID string, userID string) error {
	return s.relationService.Remove(ctx, domain.RelationSubscription, userID, authorID)
}

// GetSubscriptions lists followed authors with at most recipesLimit of their
// recipes each. A negative recipesLimit includes every recipe.
func (s *userService) GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) (domain.SubscriptionListResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.SubscriptionListResponse{}, domain.ErrParseUUID
	}

	authors, count, err := s.userRepository.GetSubscriptions(ctx, id, page, limit)
	if err != nil {
		return domain.SubscriptionListResponse{}, err
	}

	res := domain.SubscriptionListResponse{
		Subscriptions: make([]domain.Subscription, 0, len(authors)),
		Pagination:    domain.NewPagination(page, limit, count),
	}
	for _, author := range authors {
		sub, err := s.subscription(ctx, author, recipesLimit)
		if err != nil {
			return domain.SubscriptionListResponse{}, err
		}
		res.Subscriptions = append(res.Subscriptions, sub)
	}
	return res, nil
}

// subscription renders a followed author as seen by their subscriber.
func (s *userService) subscription(ctx context.Context, author *entities.User, recipesLimit int) (domain.Subscription, error) {
	recipes, count, err := s.userRepository.GetAuthorRecipes(ctx, author.ID, recipesLimit)
	if err != nil {
		return domain.Subscription{}, err
	}

	sub := domain.Subscription{
		UserProfile:  toUserProfile(author),
		Recipes:      make([]domain.RecipeShort, 0, len(recipes)),
		RecipesCount: count,
	}
	sub.IsSubscribed = true
	for _, r := range recipes {
		sub.Recipes = append(sub.Recipes, domain.RecipeShort{
			ID:          r.ID.String(),
			Name:        r.Name,
			Image:       r.ImageURL,
			CookingTime: r.CookingTime,
		})
	}
	return sub, nil
}
