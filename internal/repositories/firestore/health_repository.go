package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/freightdesk/api/internal/platform/firestore"
	"github.com/freightdesk/api/internal/repositories"
)

// HealthProbe returns a readiness probe that runs a lightweight read against
// Firestore. A NotFound response still proves the backend is reachable.
func HealthProbe(provider *pfirestore.Provider) repositories.DependencyProbe {
	return repositories.DependencyProbe{
		Name: "firestore",
		Check: func(ctx context.Context) error {
			if provider == nil {
				return errors.New("firestore provider is not configured")
			}
			client, err := provider.Client(ctx)
			if err != nil {
				return err
			}
			_, err = client.Collection(countersCollection).Doc("healthcheck").Get(ctx)
			if err != nil && status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		},
	}
}
