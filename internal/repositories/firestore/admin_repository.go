package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/freightdesk/api/internal/domain"
	pfirestore "github.com/freightdesk/api/internal/platform/firestore"
)

const (
	adminCollection      = "admins"
	adminEmailCollection = "admin_emails"
)

// AdminRepository stores back-office accounts in Firestore. Email uniqueness
// is enforced through an index collection keyed by the lowercased address,
// written in the same transaction as the account document.
type AdminRepository struct {
	base     *pfirestore.BaseRepository[adminDocument]
	emails   *pfirestore.BaseRepository[adminEmailDocument]
	provider *pfirestore.Provider
}

// NewAdminRepository constructs a Firestore-backed admin repository.
func NewAdminRepository(provider *pfirestore.Provider) (*AdminRepository, error) {
	if provider == nil {
		return nil, errors.New("admin repository requires firestore provider")
	}

	return &AdminRepository{
		base:     pfirestore.NewBaseRepository[adminDocument](provider, adminCollection, nil, nil),
		emails:   pfirestore.NewBaseRepository[adminEmailDocument](provider, adminEmailCollection, nil, nil),
		provider: provider,
	}, nil
}

// Insert creates the account and claims its email atomically. A claimed email
// surfaces as a conflict.
func (r *AdminRepository) Insert(ctx context.Context, admin domain.Admin) error {
	if r == nil || r.provider == nil {
		return errors.New("admin repository not initialised")
	}
	if strings.TrimSpace(admin.ID) == "" {
		return errors.New("admin repository: id is required")
	}
	emailKey := normaliseEmail(admin.Email)
	if emailKey == "" {
		return errors.New("admin repository: email is required")
	}

	doc := fromDomainAdmin(admin)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		adminRef, err := r.base.DocumentRef(ctx, admin.ID)
		if err != nil {
			return err
		}
		emailRef, err := r.emails.DocumentRef(ctx, emailKey)
		if err != nil {
			return err
		}

		if err := tx.Create(emailRef, adminEmailDocument{AdminID: admin.ID, ClaimedAt: doc.CreatedAt}); err != nil {
			return pfirestore.WrapError("admins.insert", err)
		}
		if err := tx.Create(adminRef, doc); err != nil {
			return pfirestore.WrapError("admins.insert", err)
		}
		return nil
	})
}

// Update replaces the stored account. The email claim is immutable here; a
// changed address would need an explicit migration.
func (r *AdminRepository) Update(ctx context.Context, admin domain.Admin) error {
	if r == nil || r.base == nil {
		return errors.New("admin repository not initialised")
	}
	if strings.TrimSpace(admin.ID) == "" {
		return errors.New("admin repository: id is required")
	}

	_, err := r.base.Set(ctx, admin.ID, fromDomainAdmin(admin))
	return err
}

// FindByID loads an account by document ID.
func (r *AdminRepository) FindByID(ctx context.Context, adminID string) (domain.Admin, error) {
	if r == nil || r.base == nil {
		return domain.Admin{}, errors.New("admin repository not initialised")
	}
	if strings.TrimSpace(adminID) == "" {
		return domain.Admin{}, errors.New("admin repository: id is required")
	}

	doc, err := r.base.Get(ctx, adminID)
	if err != nil {
		return domain.Admin{}, err
	}
	return toDomainAdmin(doc.ID, doc.Data), nil
}

// FindByEmail resolves the email claim and loads the account it points at.
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (domain.Admin, error) {
	if r == nil || r.base == nil || r.emails == nil {
		return domain.Admin{}, errors.New("admin repository not initialised")
	}
	emailKey := normaliseEmail(email)
	if emailKey == "" {
		return domain.Admin{}, errors.New("admin repository: email is required")
	}

	claim, err := r.emails.Get(ctx, emailKey)
	if err != nil {
		return domain.Admin{}, err
	}
	if strings.TrimSpace(claim.Data.AdminID) == "" {
		return domain.Admin{}, pfirestore.NewNotFoundError("admins.find_by_email",
			fmt.Errorf("email claim %s has no account", emailKey))
	}
	return r.FindByID(ctx, claim.Data.AdminID)
}

type adminDocument struct {
	Email        string     `firestore:"email"`
	Name         string     `firestore:"name,omitempty"`
	Role         string     `firestore:"role"`
	PasswordHash string     `firestore:"passwordHash"`
	Disabled     bool       `firestore:"disabled"`
	LastLoginAt  *time.Time `firestore:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
}

type adminEmailDocument struct {
	AdminID   string    `firestore:"adminRef"`
	ClaimedAt time.Time `firestore:"claimedAt"`
}

func fromDomainAdmin(a domain.Admin) adminDocument {
	return adminDocument{
		Email:        normaliseEmail(a.Email),
		Name:         a.Name,
		Role:         string(a.Role),
		PasswordHash: a.PasswordHash,
		Disabled:     a.Disabled,
		LastLoginAt:  a.LastLoginAt,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func toDomainAdmin(id string, doc adminDocument) domain.Admin {
	return domain.Admin{
		ID:           id,
		Email:        doc.Email,
		Name:         doc.Name,
		Role:         domain.AdminRole(doc.Role),
		PasswordHash: doc.PasswordHash,
		Disabled:     doc.Disabled,
		LastLoginAt:  doc.LastLoginAt,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
