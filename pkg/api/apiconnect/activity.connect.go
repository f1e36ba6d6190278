package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitactivity/pkg/api"
)

// ActivityServiceName is the fully-qualified name of the ActivityService service.
const ActivityServiceName = "splitactivity.v1.ActivityService"

const (
	ActivityServiceGetActivityProcedure      = "/splitactivity.v1.ActivityService/GetActivity"
	ActivityServiceCreateExpenseProcedure    = "/splitactivity.v1.ActivityService/CreateExpense"
	ActivityServiceRecordSettlementProcedure = "/splitactivity.v1.ActivityService/RecordSettlement"
	ActivityServiceGetBalancesProcedure      = "/splitactivity.v1.ActivityService/GetBalances"
)

// ActivityServiceClient is a client for the splitactivity.v1.ActivityService service.
type ActivityServiceClient interface {
	GetActivity(context.Context, *connect.Request[api.GetActivityRequest]) (*connect.Response[api.GetActivityResponse], error)
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error)
}

// NewActivityServiceClient constructs a client for the
// splitactivity.v1.ActivityService service. baseURL is the server root,
// e.g. http://localhost:8080.
func NewActivityServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ActivityServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &activityServiceClient{
		getActivity:      connect.NewClient[api.GetActivityRequest, api.GetActivityResponse](httpClient, baseURL+ActivityServiceGetActivityProcedure, opts...),
		createExpense:    connect.NewClient[api.CreateExpenseRequest, api.CreateExpenseResponse](httpClient, baseURL+ActivityServiceCreateExpenseProcedure, opts...),
		recordSettlement: connect.NewClient[api.RecordSettlementRequest, api.RecordSettlementResponse](httpClient, baseURL+ActivityServiceRecordSettlementProcedure, opts...),
		getBalances:      connect.NewClient[api.GetBalancesRequest, api.GetBalancesResponse](httpClient, baseURL+ActivityServiceGetBalancesProcedure, opts...),
	}
}

type activityServiceClient struct {
	getActivity      *connect.Client[api.GetActivityRequest, api.GetActivityResponse]
	createExpense    *connect.Client[api.CreateExpenseRequest, api.CreateExpenseResponse]
	recordSettlement *connect.Client[api.RecordSettlementRequest, api.RecordSettlementResponse]
	getBalances      *connect.Client[api.GetBalancesRequest, api.GetBalancesResponse]
}

func (c *activityServiceClient) GetActivity(ctx context.Context, req *connect.Request[api.GetActivityRequest]) (*connect.Response[api.GetActivityResponse], error) {
	return c.getActivity.CallUnary(ctx, req)
}

func (c *activityServiceClient) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *activityServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *activityServiceClient) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

// ActivityServiceHandler is an implementation of the splitactivity.v1.ActivityService service.
type ActivityServiceHandler interface {
	GetActivity(context.Context, *connect.Request[api.GetActivityRequest]) (*connect.Response[api.GetActivityResponse], error)
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error)
}

// NewActivityServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and
// the handler itself.
func NewActivityServiceHandler(svc ActivityServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	getActivity := connect.NewUnaryHandler(ActivityServiceGetActivityProcedure, svc.GetActivity, opts...)
	createExpense := connect.NewUnaryHandler(ActivityServiceCreateExpenseProcedure, svc.CreateExpense, opts...)
	recordSettlement := connect.NewUnaryHandler(ActivityServiceRecordSettlementProcedure, svc.RecordSettlement, opts...)
	getBalances := connect.NewUnaryHandler(ActivityServiceGetBalancesProcedure, svc.GetBalances, opts...)

	return "/" + ActivityServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ActivityServiceGetActivityProcedure:
			getActivity.ServeHTTP(w, r)
		case ActivityServiceCreateExpenseProcedure:
			createExpense.ServeHTTP(w, r)
		case ActivityServiceRecordSettlementProcedure:
			recordSettlement.ServeHTTP(w, r)
		case ActivityServiceGetBalancesProcedure:
			getBalances.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedActivityServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedActivityServiceHandler struct{}

func (UnimplementedActivityServiceHandler) GetActivity(context.Context, *connect.Request[api.GetActivityRequest]) (*connect.Response[api.GetActivityResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitactivity.v1.ActivityService.GetActivity is not implemented"))
}

func (UnimplementedActivityServiceHandler) CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitactivity.v1.ActivityService.CreateExpense is not implemented"))
}

func (UnimplementedActivityServiceHandler) RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitactivity.v1.ActivityService.RecordSettlement is not implemented"))
}

func (UnimplementedActivityServiceHandler) GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitactivity.v1.ActivityService.GetBalances is not implemented"))
}
