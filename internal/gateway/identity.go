package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
)

type identityResource struct {
	ID                  string `json:"id"`
	ProviderDisplayName string `json:"providerDisplayName"`
}

// ResolveIdentity looks up the platform identity id for an email address.
// A single lookup is attempted; an empty result is reported as unresolvable.
func (g *AzureDevOpsGateway) ResolveIdentity(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.NewUnresolvableIdentity(email)
	}

	params := url.Values{}
	params.Set("searchFilter", "General")
	params.Set("filterValue", email)
	params.Set("queryMembership", "None")

	var res listResponse[identityResource]
	err := g.doJSON(ctx, apiRequest{
		method: http.MethodGet,
		base:   g.identityURL,
		path:   []string{"_apis", "identities"},
		params: params,
	}, &res)
	if err != nil {
		return "", fmt.Errorf("failed to resolve identity: %w", err)
	}
	for _, id := range res.Value {
		if id.ID != "" {
			g.logger.Debug("Resolved identity", zap.String("display_name", id.ProviderDisplayName))
			return id.ID, nil
		}
	}
	return "", apperror.NewUnresolvableIdentity(email)
}
