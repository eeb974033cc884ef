package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	partnerapp "github.com/ribotflow/backend/internal/application/partner"
	"github.com/spf13/cobra"
)

type contactCreator interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req partnerapp.CreateContactRequest) (*partnerapp.ContactResponse, error)
}

type supplierCreator interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req partnerapp.CreateSupplierRequest) (*partnerapp.SupplierResponse, error)
}

// SeedResult lists what a seed run created
type SeedResult struct {
	Suppliers int `json:"suppliers"`
	Contacts  int `json:"contacts"`
}

var contactStages = []string{"lead", "prospect", "customer", "inactive"}

func newSeedCmd(flags *globalFlags) *cobra.Command {
	var (
		tenantSlug string
		actorEmail string
		contacts   int
		suppliers  int
		seed       uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a tenant with fake contacts and suppliers for demos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if contacts < 0 || suppliers < 0 {
				return fmt.Errorf("counts must not be negative")
			}
			e, err := connect(cmd, flags)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			tenant, err := e.tenantBySlug(ctx, tenantSlug)
			if err != nil {
				return err
			}
			actor, err := e.actor(ctx, tenant, actorEmail)
			if err != nil {
				return err
			}
			res, err := seedPartners(ctx, gofakeit.New(seed), e.contactSvc, e.supplierSvc,
				tenant.ID, actor.ID, suppliers, contacts)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flags.output, res)
		},
	}
	cmd.Flags().StringVar(&tenantSlug, "tenant", "", "Tenant slug")
	cmd.Flags().StringVar(&actorEmail, "as", "", "Email of the user recorded as creator")
	cmd.Flags().IntVar(&contacts, "contacts", 25, "Number of contacts")
	cmd.Flags().IntVar(&suppliers, "suppliers", 5, "Number of suppliers")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed, 0 for a random one")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

// seedPartners creates suppliers first, then contacts of which every third
// works for one of them
func seedPartners(
	ctx context.Context,
	fake *gofakeit.Faker,
	contactSvc contactCreator,
	supplierSvc supplierCreator,
	tenantID, userID uuid.UUID,
	suppliers, contacts int,
) (*SeedResult, error) {
	res := &SeedResult{}
	supplierIDs := make([]uuid.UUID, 0, suppliers)
	for i := 0; i < suppliers; i++ {
		company := fake.Company()
		s, err := supplierSvc.Create(ctx, tenantID, userID, partnerapp.CreateSupplierRequest{
			Name:               company,
			TaxID:              fmt.Sprintf("B%08d", fake.Number(0, 99999999)),
			Website:            fake.URL(),
			ContactInfoRequest: fakeContactInfo(fake, company),
		})
		if err != nil {
			return res, fmt.Errorf("supplier %d: %w", i+1, err)
		}
		supplierIDs = append(supplierIDs, s.ID)
		res.Suppliers++
	}

	for i := 0; i < contacts; i++ {
		name := fake.Name()
		req := partnerapp.CreateContactRequest{
			Name:               name,
			Company:            fake.Company(),
			JobTitle:           fake.JobTitle(),
			Stage:              contactStages[fake.Number(0, len(contactStages)-1)],
			ContactInfoRequest: fakeContactInfo(fake, name),
		}
		if len(supplierIDs) > 0 && i%3 == 0 {
			id := supplierIDs[fake.Number(0, len(supplierIDs)-1)]
			req.SupplierID = &id
		}
		if _, err := contactSvc.Create(ctx, tenantID, userID, req); err != nil {
			return res, fmt.Errorf("contact %d: %w", i+1, err)
		}
		res.Contacts++
	}
	return res, nil
}

// fakeContactInfo derives a unique email from name so contacts never collide
func fakeContactInfo(fake *gofakeit.Faker, name string) partnerapp.ContactInfoRequest {
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	local = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' {
			return r
		}
		return -1
	}, local)
	if local = strings.Trim(local, "."); local == "" {
		local = "contact"
	}
	return partnerapp.ContactInfoRequest{
		Email:   fmt.Sprintf("%s.%d@example.com", local, fake.Number(100000, 999999)),
		Phone:   fake.Phone(),
		Address: fake.Street(),
		City:    fake.City(),
		Postal:  fake.Zip(),
		Country: fake.Country(),
	}
}
