package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/abgdnv/productcatalog/pkg/config"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
)

// skipIntegrationTests is the environment variable that controls whether to skip integration tests.
const skipIntegrationTests = "CATALOG_SKIP_INTEGRATION_TESTS"
const natsImg = "nats:2.11.6-alpine"

// RPCSuite drives the registered endpoints through a real NATS server.
type RPCSuite struct {
	suite.Suite
	ctx           context.Context
	logger        *slog.Logger
	natsContainer *nats.NATSContainer
	nc            *natsgo.Conn
	svc           micro.Service
}

func (s *RPCSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.natsContainer, err = nats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	s.nc, err = natsgo.Connect(natsURL)
	require.NoError(s.T(), err, "Failed to connect to NATS")

	productService := service.NewService(store.NewInMemoryStore(), nil, s.logger)
	server, err := NewServer(productService, 5*time.Second, s.logger)
	require.NoError(s.T(), err)

	s.svc, err = server.Register(s.nc, config.RPCConfig{
		Name:       "product-catalog",
		Version:    "1.0.0",
		Group:      "products",
		QueueGroup: "product-catalog",
		Timeout:    5 * time.Second,
	})
	require.NoError(s.T(), err, "Failed to register RPC service")
}

func (s *RPCSuite) TearDownSuite() {
	if s.svc != nil {
		_ = s.svc.Stop()
	}
	s.nc.Close()
	if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
		s.logger.Error("Failed to terminate NATS container", "error", err)
	}
}

func TestRPCIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(RPCSuite))
}

func (s *RPCSuite) request(cmd, payload string) *natsgo.Msg {
	msg, err := s.nc.Request("products."+cmd, []byte(payload), 5*time.Second)
	s.Require().NoError(err, "request %s failed", cmd)
	return msg
}

func (s *RPCSuite) TestProductLifecycle() {
	// given
	msg := s.request(CreateProduct, `{"name":"Lamp","price":20}`)
	s.Empty(msg.Header.Get(micro.ErrorCodeHeader))
	var created service.ProductDto
	s.Require().NoError(json.Unmarshal(msg.Data, &created))
	s.True(created.Available)

	// when
	msg = s.request(DeleteProduct, `{"id":"`+jsonID(created.ID)+`"}`)
	s.Empty(msg.Header.Get(micro.ErrorCodeHeader))

	// then
	msg = s.request(GetProduct, `{"id":`+jsonID(created.ID)+`}`)
	s.Equal("404", msg.Header.Get(micro.ErrorCodeHeader))
	var body errorBody
	s.Require().NoError(json.Unmarshal(msg.Data, &body))
	s.Equal(404, body.Status)

	msg = s.request(GetProducts, ``)
	var page service.ProductPageDto
	s.Require().NoError(json.Unmarshal(msg.Data, &page))
	for _, p := range page.Data {
		s.NotEqual(created.ID, p.ID)
	}

	msg = s.request(UpdateProduct, `{"id":`+jsonID(created.ID)+`,"name":"x"}`)
	s.Empty(msg.Header.Get(micro.ErrorCodeHeader))
	var updated service.ProductDto
	s.Require().NoError(json.Unmarshal(msg.Data, &updated))
	s.Equal("x", updated.Name)
	s.Equal(created.ID, updated.ID)
}

func (s *RPCSuite) TestUpdateUnknownProduct() {
	// when
	msg := s.request(UpdateProduct, `{"id":987654,"name":"x"}`)
	// then
	s.Empty(msg.Header.Get(micro.ErrorCodeHeader))
	s.JSONEq(`{"message":"Product with id 987654 not found, cannot update"}`, string(msg.Data))
}

func (s *RPCSuite) TestValidateProducts() {
	// given
	msg := s.request(CreateProduct, `{"name":"Desk","price":150}`)
	var created service.ProductDto
	s.Require().NoError(json.Unmarshal(msg.Data, &created))
	id := jsonID(created.ID)

	// when
	ok := s.request(ValidateProducts, `[`+id+`,`+id+`]`)
	missing := s.request(ValidateProducts, `{"ids":[`+id+`,999999]}`)

	// then
	var products []service.ProductDto
	s.Require().NoError(json.Unmarshal(ok.Data, &products))
	s.Len(products, 1)

	s.Equal("400", missing.Header.Get(micro.ErrorCodeHeader))
	var body errorBody
	s.Require().NoError(json.Unmarshal(missing.Data, &body))
	s.Equal([]int64{999999}, body.Missing)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
