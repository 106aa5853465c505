package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/buildleft/site-backend/internal/domain"
	"github.com/buildleft/site-backend/internal/repository"
)

// ContactNotifier delivers a notification for a stored submission.
// Delivery failures never fail the submission itself.
type ContactNotifier interface {
	NotifyContact(contact *domain.Contact) error
	NotifyQuickContact(contact *domain.QuickContact) error
}

// ContactService persists contact-form submissions and fires notifications.
type ContactService interface {
	SubmitContact(ctx context.Context, contact *domain.Contact) (*domain.Contact, error)
	SubmitQuickContact(ctx context.Context, contact *domain.QuickContact) (*domain.QuickContact, error)
}

type contactService struct {
	contacts repository.ContactRepository
	notifier ContactNotifier
	logger   logrus.FieldLogger
}

func NewContactService(contacts repository.ContactRepository, notifier ContactNotifier, logger logrus.FieldLogger) ContactService {
	return &contactService{contacts: contacts, notifier: notifier, logger: logger}
}

func (s *contactService) SubmitContact(ctx context.Context, contact *domain.Contact) (*domain.Contact, error) {
	var violations []string
	if strings.TrimSpace(contact.FirstName) == "" {
		violations = append(violations, "first name is required")
	}
	if strings.TrimSpace(contact.LastName) == "" {
		violations = append(violations, "last name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(contact.Email)) {
		violations = append(violations, "email must be a valid address")
	}
	if strings.TrimSpace(contact.Service) == "" {
		violations = append(violations, "service is required")
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	if err := s.contacts.CreateContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("store contact: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyContact(contact); err != nil {
			s.logger.Warnf("contact notification failed: %v", err)
		}
	}

	return contact, nil
}

func (s *contactService) SubmitQuickContact(ctx context.Context, contact *domain.QuickContact) (*domain.QuickContact, error) {
	var violations []string
	if strings.TrimSpace(contact.Name) == "" {
		violations = append(violations, "name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(contact.Email)) {
		violations = append(violations, "email must be a valid address")
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	if err := s.contacts.CreateQuickContact(ctx, contact); err != nil {
		return nil, fmt.Errorf("store quick contact: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyQuickContact(contact); err != nil {
			s.logger.Warnf("quick contact notification failed: %v", err)
		}
	}

	return contact, nil
}
