package identity

import (
	"context"

	id "registre/pkg/domain"
)

// SeedDirectory provisions the ministry directory used by the prototype.
// Returned slice is ordered: receptionist, agents, director, admin.
func SeedDirectory(ctx context.Context, store UserStore) ([]User, error) {
	users := []User{
		{
			ID:        id.NewUserID(),
			FirstName: "Marie",
			LastName:  "Kabongo",
			Email:     "reception@ministere.gouv",
			Role:      RoleReceptionist,
			Service:   "Courrier Central",
		},
		{
			ID:        id.NewUserID(),
			FirstName: "Jean",
			LastName:  "Mukendi",
			Email:     "j.mukendi@ministere.gouv",
			Role:      RoleAgent,
			Service:   "Cabinet",
		},
		{
			ID:        id.NewUserID(),
			FirstName: "Sylvie",
			LastName:  "Tshala",
			Email:     "s.tshala@ministere.gouv",
			Role:      RoleAgent,
			Service:   "Secrétariat Général",
		},
		{
			ID:        id.NewUserID(),
			FirstName: "Patrice",
			LastName:  "Ilunga",
			Email:     "directeur@ministere.gouv",
			Role:      RoleDirector,
			Service:   "Direction",
		},
		{
			ID:        id.NewUserID(),
			FirstName: "Admin",
			LastName:  "Système",
			Email:     "admin@ministere.gouv",
			Role:      RoleAdmin,
		},
	}
	for _, u := range users {
		if err := store.Save(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}
