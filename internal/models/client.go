package models

import (
	"errors"
	"time"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusPending  ClientStatus = "pending"
)

type ClientTier string

const (
	TierStandard   ClientTier = "standard"
	TierPremium    ClientTier = "premium"
	TierEnterprise ClientTier = "enterprise"
)

// Client is an advertiser account.
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`

	ContactName  string `json:"contactName,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`

	Status ClientStatus `json:"status"`
	Tier   ClientTier   `json:"tier"`

	BillingEmail string `json:"billingEmail,omitempty"`
	PaymentTerms string `json:"paymentTerms,omitempty"`

	Notes string   `json:"notes,omitempty"`
	Tags  []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Client) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

type BudgetType string

const (
	BudgetDaily     BudgetType = "daily"
	BudgetMonthly   BudgetType = "monthly"
	BudgetTotal     BudgetType = "total"
	BudgetUnlimited BudgetType = "unlimited"
)

// Campaign groups a client's banners under a budget, schedule and goals.
type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ClientID    string `json:"clientId"`
	Description string `json:"description,omitempty"`

	Status CampaignStatus `json:"status"`

	Budget      float64    `json:"budget,omitempty"`
	BudgetType  BudgetType `json:"budgetType"`
	SpentAmount float64    `json:"spentAmount"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	ImpressionGoal int `json:"impressionGoal,omitempty"`
	ClickGoal      int `json:"clickGoal,omitempty"`

	DefaultPageTargeting   []string `json:"defaultPageTargeting,omitempty"`
	DefaultDeviceTargeting string   `json:"defaultDeviceTargeting,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Campaign) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.ClientID == "" {
		return errors.New("clientId is required")
	}
	return nil
}
