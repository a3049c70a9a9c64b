package shoppinglist

import (
	"context"
	"fmt"
	"strings"

	"foodgram/domain"
	"foodgram/internal/utils/mailing"
	"foodgram/pkg/user"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	ShoppingListService interface {
		BuildShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
		DownloadShoppingList(ctx context.Context, userID string) (string, error)
		SendShoppingList(ctx context.Context, userID string) error
	}

	shoppingListService struct {
		shoppingListRepository ShoppingListRepository
		userRepository         user.UserRepository
		mailer                 mailing.Mailer
	}
)

func NewShoppingListService(
	shoppingListRepository ShoppingListRepository,
	userRepository user.UserRepository,
	mailer mailing.Mailer,
) ShoppingListService {
	return &shoppingListService{
		shoppingListRepository: shoppingListRepository,
		userRepository:         userRepository,
		mailer:                 mailer,
	}
}

// Render formats one line per item as "<name> — <total> <unit>". An empty
// list renders as an empty string.
func Render(items []domain.ShoppingListItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s — %d %s", item.Name, item.TotalAmount, item.MeasurementUnit))
	}
	return strings.Join(lines, "\n")
}

func (s *shoppingListService) BuildShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	return s.shoppingListRepository.GetCartTotals(ctx, id)
}

func (s *shoppingListService) DownloadShoppingList(ctx context.Context, userID string) (string, error) {
	items, err := s.BuildShoppingList(ctx, userID)
	if err != nil {
		return "", err
	}
	return Render(items), nil
}

// SendShoppingList mails the rendered list to the user, both as the message
// body and as a shopping_list.txt attachment.
func (s *shoppingListService) SendShoppingList(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrParseUUID
	}
	recipient, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	body, err := s.DownloadShoppingList(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.mailer.SendMail(recipient.Email, domain.ShoppingListSubject, body, mailing.Attachment{
		Filename: domain.ShoppingListFilename,
		Content:  []byte(body),
	}); err != nil {
		log.Errorf("failed to send shopping list to %s: %v", recipient.Email, err)
		return err
	}
	return nil
}
