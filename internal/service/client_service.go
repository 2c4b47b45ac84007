package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/pkg/apperror"
	"invoicing/pkg/pagination"

	"go.uber.org/zap"
)

// gstinPattern matches a 15 character GSTIN: state code, PAN, entity number, Z, checksum.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// --- DTOs ---

type CreateClientRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	GSTNumber string `json:"gst_number"`
	Category  string `json:"category"`
}

type UpdateClientRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	GSTNumber *string `json:"gst_number"`
	Category  *string `json:"category"`
}

type ClientFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

type ClientResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	GSTNumber string `json:"gst_number"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// --- Interface ---

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest) (ClientResponse, error)
	UpdateClient(ctx context.Context, id string, req UpdateClientRequest) (ClientResponse, error)
	DeleteClient(ctx context.Context, id string) error
	GetClient(ctx context.Context, id string) (ClientResponse, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]ClientResponse, int64, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
	txManager  repository.TransactionManager
	deps       Deps
}

func NewClientService(clientRepo repository.ClientRepository, txManager repository.TransactionManager, deps Deps) ClientService {
	return &clientService{clientRepo: clientRepo, txManager: txManager, deps: deps.withDefaults()}
}

// --- Implementation ---

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest) (ClientResponse, error) {
	client := model.Client{Category: model.ClientCategoryGroup}
	if err := applyClientFields(&client, &req.Name, &req.Email, &req.Phone, &req.Address, &req.GSTNumber, &req.Category); err != nil {
		return ClientResponse{}, err
	}

	if err := s.clientRepo.Create(ctx, &client); err != nil {
		return ClientResponse{}, fmt.Errorf("failed to create client: %w", err)
	}

	s.deps.Logger.Info("client created", zap.String("client_id", client.ID.String()), zap.String("category", client.Category))
	resp := toClientResponse(client)
	s.deps.Events.Publish(EventClientCreated, resp)
	return resp, nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req UpdateClientRequest) (ClientResponse, error) {
	clientID, err := parseID("client id", id)
	if err != nil {
		return ClientResponse{}, err
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, lookupErr(err, "client", clientID)
	}

	if err := applyClientFields(client, req.Name, req.Email, req.Phone, req.Address, req.GSTNumber, req.Category); err != nil {
		return ClientResponse{}, err
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return ClientResponse{}, fmt.Errorf("failed to update client: %w", err)
	}
	return toClientResponse(*client), nil
}

// DeleteClient refuses to remove a client that any estimate or invoice still references.
func (s *clientService) DeleteClient(ctx context.Context, id string) error {
	clientID, err := parseID("client id", id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.clientRepo.FindByID(txCtx, clientID); err != nil {
			return lookupErr(err, "client", clientID)
		}

		refs, err := s.clientRepo.CountDocuments(txCtx, clientID)
		if err != nil {
			return fmt.Errorf("failed to check client references: %w", err)
		}
		if refs > 0 {
			return apperror.InvalidState("client %s is referenced by %d document(s)", clientID, refs)
		}

		if err := s.clientRepo.Delete(txCtx, clientID); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return nil
	})
}

func (s *clientService) GetClient(ctx context.Context, id string) (ClientResponse, error) {
	clientID, err := parseID("client id", id)
	if err != nil {
		return ClientResponse{}, err
	}
	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, lookupErr(err, "client", clientID)
	}
	return toClientResponse(*client), nil
}

func (s *clientService) ListClients(ctx context.Context, filter ClientFilter) ([]ClientResponse, int64, error) {
	if filter.Category != "" && !model.IsValidClientCategory(filter.Category) {
		return nil, 0, apperror.InvalidInput("unknown client category %q", filter.Category)
	}
	clients, total, err := s.clientRepo.List(ctx, filter.Category, filter.Search, pagination.New(filter.Page, filter.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clients: %w", err)
	}

	result := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		result = append(result, toClientResponse(c))
	}
	return result, total, nil
}

// applyClientFields validates and copies every non-nil field onto client.
func applyClientFields(client *model.Client, name, email, phone, address, gstNumber, category *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return apperror.InvalidInput("client name is required")
		}
		client.Name = trimmed
	}
	if email != nil {
		client.Email = strings.TrimSpace(*email)
	}
	if phone != nil {
		client.Phone = strings.TrimSpace(*phone)
	}
	if address != nil {
		client.Address = strings.TrimSpace(*address)
	}
	if gstNumber != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*gstNumber))
		if normalized != "" && !gstinPattern.MatchString(normalized) {
			return apperror.InvalidInput("invalid GST number %q", *gstNumber)
		}
		client.GSTNumber = normalized
	}
	if category != nil && *category != "" {
		if !model.IsValidClientCategory(*category) {
			return apperror.InvalidInput("unknown client category %q", *category)
		}
		client.Category = *category
	}
	return nil
}

// --- Mapping ---

func toClientResponse(c model.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		GSTNumber: c.GSTNumber,
		Category:  c.Category,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
