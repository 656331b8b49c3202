package api

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/projects/project"
)

const organizationGroupPrefix = "organization:"

// actorFromRequest builds the actor from the verified claims the API Gateway
// authorizer attached to the request. Missing claims yield an actor that
// belongs to no organization.
func actorFromRequest(event events.APIGatewayProxyRequest) project.Actor {
	claims := claimsOf(event.RequestContext.Authorizer)
	return project.Actor{
		UserID:        claimString(claims, "sub"),
		Role:          project.Role(claimString(claims, "role")),
		Organizations: organizations(claims["cognito:groups"]),
		SourceIP:      event.RequestContext.Identity.SourceIP,
	}
}

func claimsOf(authorizer map[string]interface{}) map[string]interface{} {
	if claims, ok := authorizer["claims"].(map[string]interface{}); ok {
		return claims
	}
	return nil
}

func claimString(claims map[string]interface{}, name string) string {
	s, _ := claims[name].(string)
	return s
}

// organizations extracts organization ids from the groups claim, which
// arrives either as a comma separated string or as a list.
func organizations(groups interface{}) []string {
	var names []string
	switch v := groups.(type) {
	case string:
		names = strings.Split(v, ",")
	case []interface{}:
		for _, g := range v {
			if s, ok := g.(string); ok {
				names = append(names, s)
			}
		}
	case []string:
		names = v
	}

	var orgs []string
	for _, name := range names {
		if org, ok := strings.CutPrefix(strings.TrimSpace(name), organizationGroupPrefix); ok && org != "" {
			orgs = append(orgs, org)
		}
	}
	return orgs
}
