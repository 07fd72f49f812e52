package flows

import (
	"context"

	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
	"github.com/kevin07696/gateway-console/internal/users"
)

// CreateUser registers a gateway user and mirrors it into the local
// registry on success.
func (s *Service) CreateUser(ctx context.Context, req UserRequest) (Result, error) {
	return s.userAction(ctx, "Create User", "createUser", req)
}

// UpdateUser updates a gateway user's details; the local mirror keeps its
// original creation time and stored payment options.
func (s *Service) UpdateUser(ctx context.Context, req UserRequest) (Result, error) {
	return s.userAction(ctx, "Update User", "updateUser", req)
}

func (s *Service) userAction(ctx context.Context, label, endpoint string, req UserRequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{"userTokenId": req.UserTokenID}, "userTokenId"); err != nil {
		return Result{}, err
	}

	seed := map[string]string{
		"userTokenId": req.UserTokenID,
		"firstName":   req.FirstName,
		"lastName":    req.LastName,
		"email":       req.Email,
		"countryCode": req.CountryCode,
	}

	r := s.newRunner(label, req.MerchantCredentials, seed)
	if r.run(ctx, userStep(endpoint)) {
		s.users.Upsert(users.User{
			TokenID:     req.UserTokenID,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			CountryCode: req.CountryCode,
		})
	}

	return r.finish(), nil
}

// GetUserDetails fetches a user's gateway-side record.
func (s *Service) GetUserDetails(ctx context.Context, req UserRequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{"userTokenId": req.UserTokenID}, "userTokenId"); err != nil {
		return Result{}, err
	}

	r := s.newRunner("User Details", req.MerchantCredentials, map[string]string{
		"userTokenId": req.UserTokenID,
	})
	r.run(ctx, scenario.Step{
		Name:     "getUserDetails",
		Endpoint: "getUserDetails",
		Body: map[string]any{
			"merchantId":     "{{env.merchantId}}",
			"merchantSiteId": "{{env.merchantSiteId}}",
			"userTokenId":    "{{ctx.userTokenId}}",
			"timeStamp":      "{{meta.timestamp}}",
		},
		Checksum: gateway.FieldOrder("getUserDetails"),
		Extract: map[string]string{
			"userDetails.firstName": "firstName",
			"userDetails.lastName":  "lastName",
			"userDetails.email":     "email",
		},
	})

	return r.finish(), nil
}

// AddUPO attaches a tokenized card to a user as a stored payment option
// and mirrors the resulting option ID into the local registry.
func (s *Service) AddUPO(ctx context.Context, req UPORequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{
		"userTokenId": req.UserTokenID,
		"ccToken":     req.CCToken,
	}, "userTokenId", "ccToken"); err != nil {
		return Result{}, err
	}

	r := s.newRunner("Add UPO", req.MerchantCredentials, map[string]string{
		"userTokenId": req.UserTokenID,
		"ccToken":     req.CCToken,
	})
	if r.run(ctx, addUPOStep()) {
		if upoID, ok := r.rc.Get("userPaymentOptionId"); ok && upoID != "" {
			s.users.AddUPO(req.UserTokenID, users.UPO{ID: upoID, CCToken: req.CCToken})
		}
	}

	return r.finish(), nil
}

func userStep(endpoint string) scenario.Step {
	return scenario.Step{
		Name:     endpoint,
		Endpoint: endpoint,
		Body: map[string]any{
			"merchantId":      "{{env.merchantId}}",
			"merchantSiteId":  "{{env.merchantSiteId}}",
			"userTokenId":     "{{ctx.userTokenId}}",
			"clientRequestId": "{{meta.clientRequestId}}",
			"firstName":       "{{ctx.firstName}}",
			"lastName":        "{{ctx.lastName}}",
			"email":           "{{ctx.email}}",
			"countryCode":     "{{ctx.countryCode}}",
			"timeStamp":       "{{meta.timestamp}}",
		},
		Checksum: gateway.FieldOrder(endpoint),
		Extract: map[string]string{
			"userId": "userId",
		},
	}
}

func addUPOStep() scenario.Step {
	return scenario.Step{
		Name:     "addUPOCreditCardByToken",
		Endpoint: "addUPOCreditCardByToken",
		Body: map[string]any{
			"merchantId":     "{{env.merchantId}}",
			"merchantSiteId": "{{env.merchantSiteId}}",
			"userTokenId":    "{{ctx.userTokenId}}",
			"ccToken":        "{{ctx.ccToken}}",
			"timeStamp":      "{{meta.timestamp}}",
		},
		Checksum: gateway.FieldOrder("addUPOCreditCardByToken"),
		Extract: map[string]string{
			"userPaymentOptionId": "userPaymentOptionId",
		},
	}
}
