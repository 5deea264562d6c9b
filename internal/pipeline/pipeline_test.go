package pipeline

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/pipeline/mocks"
	"clearcrew/internal/platform/metrics"
	"clearcrew/internal/prover"
	provermocks "clearcrew/internal/prover/mocks"
	"clearcrew/internal/registry"
	"clearcrew/internal/registry/registrytest"
	"clearcrew/internal/report"
	"clearcrew/internal/sealer"
	"clearcrew/internal/storage"
	"clearcrew/internal/witness"
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/sentinel"
)

var sample = report.Report{Title: "t", Description: "d"}

type PipelineSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	ids       *mocks.MockIdentityLoader
	keys      *mocks.MockKeySource
	sealer    *mocks.MockSealer
	witnesses *mocks.MockWitnessFetcher
	prover    *mocks.MockProofBuilder
	content   *mocks.MockContentStore
	ledger    *mocks.MockLedger
	metrics   *metrics.Metrics
	pipeline  *Pipeline

	identity models.Identity
	scalars  models.Scalars
	witness  witness.MerkleWitness
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ids = mocks.NewMockIdentityLoader(s.ctrl)
	s.keys = mocks.NewMockKeySource(s.ctrl)
	s.sealer = mocks.NewMockSealer(s.ctrl)
	s.witnesses = mocks.NewMockWitnessFetcher(s.ctrl)
	s.prover = mocks.NewMockProofBuilder(s.ctrl)
	s.content = mocks.NewMockContentStore(s.ctrl)
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())

	p, err := New(s.ids, s.keys, s.sealer, s.witnesses, s.prover,
		WithAnchor(s.content, s.ledger),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.pipeline = p

	id, err := models.New("1a", "2b")
	s.Require().NoError(err)
	s.identity = id
	s.scalars, err = id.Parse()
	s.Require().NoError(err)
	s.witness = witness.MerkleWitness{
		ItemKey:      field.FromUint64(7),
		PathElements: []field.Scalar{field.FromUint64(1), field.FromUint64(2)},
		PathIndices:  []uint8{0, 1},
		ActiveBits:   []uint8{1, 1},
		Root:         field.FromUint64(0xabc123),
	}
}

func (s *PipelineSuite) TearDownTest() {
	s.ctrl.Finish()
}

// expectThroughWitness sets up the steps before proving.
func (s *PipelineSuite) expectThroughWitness() {
	s.ids.EXPECT().Load(gomock.Any()).Return(s.identity, nil)
	s.keys.EXPECT().PublicKey(gomock.Any()).Return("server-key", nil)
	s.sealer.EXPECT().Seal(gomock.Any(), "server-key").Return([]byte("sealed"), nil)
	s.witnesses.EXPECT().Fetch(gomock.Any()).Return(s.witness, nil)
}

func (s *PipelineSuite) TestSubmitRunsEveryStepInOrder() {
	itemValue := field.Hash2(s.scalars.NullifierSeed, s.scalars.Secret)
	nullifierHash := field.Hash1(s.scalars.NullifierSeed)

	gomock.InOrder(
		s.ids.EXPECT().Load(gomock.Any()).Return(s.identity, nil),
		s.keys.EXPECT().PublicKey(gomock.Any()).Return("server-key", nil),
		s.sealer.EXPECT().Seal(report.Report{Category: report.CategoryOther, Title: "t", Description: "d"}, "server-key").
			Return([]byte("sealed"), nil),
		s.witnesses.EXPECT().Fetch(gomock.Any()).Return(s.witness, nil),
		s.prover.EXPECT().BuildProof(gomock.Any(), s.scalars, s.witness, itemValue, nullifierHash).
			Return(prover.Proof{0xde, 0xad}, nil),
		s.content.EXPECT().Upload(gomock.Any(), gomock.Any(), []byte("sealed")).Return("bafycid", nil),
		s.ledger.EXPECT().Submit(gomock.Any(), []byte{0xde, 0xad}, "bafycid", s.witness.Root).Return("0xtx", nil),
	)

	result, err := s.pipeline.Submit(context.Background(), sample)
	s.Require().NoError(err)
	s.Equal(SubmissionResult{ContentID: "bafycid", TransactionID: "0xtx"}, result)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Submissions.WithLabelValues("success")))
}

func (s *PipelineSuite) TestInvalidReportTouchesNothing() {
	_, err := s.pipeline.Submit(context.Background(), report.Report{Title: " ", Description: "d"})
	s.True(dErrors.Is(err, dErrors.CodeInvalidReport))
}

func (s *PipelineSuite) TestNoIdentityMakesNoNetworkCall() {
	s.ids.EXPECT().Load(gomock.Any()).Return(models.Identity{}, sentinel.ErrNotFound)

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeNoIdentity))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Submissions.WithLabelValues(string(dErrors.CodeNoIdentity))))
}

func (s *PipelineSuite) TestPublicKeyFailureIsNetworkFailure() {
	s.ids.EXPECT().Load(gomock.Any()).Return(s.identity, nil)
	s.keys.EXPECT().PublicKey(gomock.Any()).Return("", errors.New("connection refused"))

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeNetworkFailure))
	s.True(dErrors.Retryable(err))
}

func (s *PipelineSuite) TestSealingFailureStopsBeforeWitness() {
	s.ids.EXPECT().Load(gomock.Any()).Return(s.identity, nil)
	s.keys.EXPECT().PublicKey(gomock.Any()).Return("garbage", nil)
	s.sealer.EXPECT().Seal(gomock.Any(), "garbage").
		Return(nil, dErrors.New(dErrors.CodeSealingFailed, "unrecognized public key"))

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeSealingFailed))
}

func (s *PipelineSuite) TestWitnessFailureStopsPipeline() {
	s.ids.EXPECT().Load(gomock.Any()).Return(s.identity, nil)
	s.keys.EXPECT().PublicKey(gomock.Any()).Return("server-key", nil)
	s.sealer.EXPECT().Seal(gomock.Any(), gomock.Any()).Return([]byte("sealed"), nil)
	s.witnesses.EXPECT().Fetch(gomock.Any()).
		Return(witness.MerkleWitness{}, dErrors.New(dErrors.CodeNetworkFailure, "registry unavailable"))
	s.prover.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.content.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.ledger.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeNetworkFailure))
}

func (s *PipelineSuite) TestProverRejectionSkipsUpload() {
	s.expectThroughWitness()
	s.prover.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeProofGenerationFailed, "root mismatch"))
	s.content.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.ledger.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeProofGenerationFailed))
	s.False(dErrors.Retryable(err))
}

func (s *PipelineSuite) TestUntypedUploadErrorBecomesUploadFailed() {
	s.expectThroughWitness()
	s.prover.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(prover.Proof{1}, nil)
	s.content.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))
	s.ledger.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeUploadFailed))
}

func (s *PipelineSuite) TestLedgerFailureAfterUpload() {
	s.expectThroughWitness()
	s.prover.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(prover.Proof{1}, nil)
	s.content.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Return("bafycid", nil)
	s.ledger.EXPECT().Submit(gomock.Any(), gomock.Any(), "bafycid", gomock.Any()).
		Return("", errors.New("execution reverted"))

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeLedgerSubmissionFailed))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Submissions.WithLabelValues(string(dErrors.CodeLedgerSubmissionFailed))))
}

func (s *PipelineSuite) TestMismatchedItemValueStillProves() {
	other := field.FromUint64(99)
	w := s.witness
	w.ItemValue = &other

	s.ids.EXPECT().Load(gomock.Any()).Return(s.identity, nil)
	s.keys.EXPECT().PublicKey(gomock.Any()).Return("server-key", nil)
	s.sealer.EXPECT().Seal(gomock.Any(), gomock.Any()).Return([]byte("sealed"), nil)
	s.witnesses.EXPECT().Fetch(gomock.Any()).Return(w, nil)
	s.prover.EXPECT().BuildProof(gomock.Any(), s.scalars, w, s.scalars.Commitment(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeProofGenerationFailed, "constraint not satisfied"))

	_, err := s.pipeline.Submit(context.Background(), sample)
	s.True(dErrors.Is(err, dErrors.CodeProofGenerationFailed))
}

func TestNewRequiresAnchorOrRelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := New(
		mocks.NewMockIdentityLoader(ctrl),
		mocks.NewMockKeySource(ctrl),
		mocks.NewMockSealer(ctrl),
		mocks.NewMockWitnessFetcher(ctrl),
		mocks.NewMockProofBuilder(ctrl),
	)
	assert.Error(t, err)

	_, err = New(nil, nil, nil, nil, nil, WithRelay(mocks.NewMockRelay(ctrl)))
	assert.Error(t, err)
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type residentIdentity struct{ id models.Identity }

func (r residentIdentity) Load(context.Context) (models.Identity, error) { return r.id, nil }

// TestRelayAgainstFakeRegistry runs the relay flow over HTTP with the real
// sealer, witness fetcher and orchestrator; only the proving backend is mocked.
func TestRelayAgainstFakeRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := registrytest.New(t)

	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(priv.PublicKey())
	require.NoError(t, err)
	srv.SetPublicKey(base64.StdEncoding.EncodeToString(der))
	srv.SetTree(registry.MerkleTreeResponse{
		Root:         "abc123",
		ItemKey:      "7",
		ItemNextIdx:  "0",
		ItemNextKey:  "0",
		PathElements: []registry.Value{"1", "2"},
		PathIndices:  []registry.Value{"0", "1"},
		ActiveBits:   []registry.Value{"1", "1"},
	})

	client, err := registry.New(srv.URL, staticToken(srv.Token()))
	require.NoError(t, err)
	fetcher, err := witness.NewFetcher(client, witness.WithDepth(2))
	require.NoError(t, err)
	backend := provermocks.NewMockBackend(ctrl)
	backend.EXPECT().Name().Return("mock").AnyTimes()
	backend.EXPECT().Prove(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in prover.Inputs) (prover.Proof, error) {
			named := in.Named()
			assert.Equal(t, "0xabc123", named[prover.InputRoot])
			return prover.Proof{0xca, 0xfe}, nil
		})
	orchestrator, err := prover.New(backend)
	require.NoError(t, err)
	sl, err := sealer.New()
	require.NoError(t, err)

	id, err := models.New("1a", "2b")
	require.NoError(t, err)
	scalars, err := id.Parse()
	require.NoError(t, err)

	p, err := New(residentIdentity{id}, client, sl, fetcher, orchestrator, WithRelay(client))
	require.NoError(t, err)

	result, err := p.Submit(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, SubmissionResult{ContentID: "bafyrelay", TransactionID: "0xrelay"}, result)

	reports := srv.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "0xcafe", reports[0].ZKProof)
	assert.Equal(t, "0xabc123", reports[0].Root)
	assert.Equal(t, scalars.NullifierHash().PrefixedHex(), reports[0].NullifierHash)

	sealed, err := base64.StdEncoding.DecodeString(reports[0].EncryptedContent)
	require.NoError(t, err)
	plain, err := sealer.Open(sealed, priv)
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"OTHER","title":"t","description":"d","department":"","date":""}`, string(plain))
}

func TestRelayFailureIsTyped(t *testing.T) {
	ctrl := gomock.NewController(t)
	ids := mocks.NewMockIdentityLoader(ctrl)
	keys := mocks.NewMockKeySource(ctrl)
	sl := mocks.NewMockSealer(ctrl)
	witnesses := mocks.NewMockWitnessFetcher(ctrl)
	proofs := mocks.NewMockProofBuilder(ctrl)
	relay := mocks.NewMockRelay(ctrl)

	id, err := models.New("1a", "2b")
	require.NoError(t, err)
	ids.EXPECT().Load(gomock.Any()).Return(id, nil)
	keys.EXPECT().PublicKey(gomock.Any()).Return("k", nil)
	sl.EXPECT().Seal(gomock.Any(), "k").Return([]byte("sealed"), nil)
	witnesses.EXPECT().Fetch(gomock.Any()).Return(witness.MerkleWitness{Root: field.FromUint64(1)}, nil)
	proofs.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(prover.Proof{1}, nil)
	relay.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).
		Return(registry.RelayResponse{}, dErrors.New(dErrors.CodeRegistryRejected, "nullifier already used"))

	p, err := New(ids, keys, sl, witnesses, proofs, WithRelay(relay))
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), sample)
	assert.True(t, dErrors.Is(err, dErrors.CodeRegistryRejected))
	assert.Equal(t, "nullifier already used", dErrors.Message(err))
}

func TestRelayWithoutTransactionIsLedgerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ids := mocks.NewMockIdentityLoader(ctrl)
	keys := mocks.NewMockKeySource(ctrl)
	sl := mocks.NewMockSealer(ctrl)
	witnesses := mocks.NewMockWitnessFetcher(ctrl)
	proofs := mocks.NewMockProofBuilder(ctrl)
	relay := mocks.NewMockRelay(ctrl)

	id, err := models.New("1a", "2b")
	require.NoError(t, err)
	ids.EXPECT().Load(gomock.Any()).Return(id, nil)
	keys.EXPECT().PublicKey(gomock.Any()).Return("k", nil)
	sl.EXPECT().Seal(gomock.Any(), "k").Return([]byte("sealed"), nil)
	witnesses.EXPECT().Fetch(gomock.Any()).Return(witness.MerkleWitness{Root: field.FromUint64(1)}, nil)
	proofs.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(prover.Proof{1}, nil)
	relay.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).
		Return(registry.RelayResponse{IpfsCID: "bafyuploaded"}, nil)

	p, err := New(ids, keys, sl, witnesses, proofs, WithRelay(relay))
	require.NoError(t, err)

	res, err := p.Submit(context.Background(), sample)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeLedgerSubmissionFailed))
	assert.False(t, dErrors.Retryable(err))
	assert.Empty(t, res.ContentID)
}

func TestAnchorUploadsSealedBytesBeforeLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	ids := mocks.NewMockIdentityLoader(ctrl)
	keys := mocks.NewMockKeySource(ctrl)
	sl := mocks.NewMockSealer(ctrl)
	witnesses := mocks.NewMockWitnessFetcher(ctrl)
	proofs := mocks.NewMockProofBuilder(ctrl)
	chain := mocks.NewMockLedger(ctrl)
	content := storage.NewInMemoryContentStore()

	id, err := models.New("1a", "2b")
	require.NoError(t, err)
	root := field.FromUint64(9)
	ids.EXPECT().Load(gomock.Any()).Return(id, nil)
	keys.EXPECT().PublicKey(gomock.Any()).Return("k", nil)
	sl.EXPECT().Seal(gomock.Any(), "k").Return([]byte("sealed report"), nil)
	witnesses.EXPECT().Fetch(gomock.Any()).Return(witness.MerkleWitness{Root: root}, nil)
	proofs.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(prover.Proof{7}, nil)
	chain.EXPECT().Submit(gomock.Any(), []byte{7}, gomock.Any(), root).
		DoAndReturn(func(ctx context.Context, _ []byte, cid string, _ field.Scalar) (string, error) {
			stored, err := content.Get(ctx, cid)
			require.NoError(t, err)
			assert.Equal(t, []byte("sealed report"), stored)
			return "0xtx", nil
		})

	p, err := New(ids, keys, sl, witnesses, proofs, WithAnchor(content, chain))
	require.NoError(t, err)

	result, err := p.Submit(context.Background(), sample)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.ContentID, "sha256-"))
	assert.Equal(t, "0xtx", result.TransactionID)
	assert.Equal(t, 1, content.Len())
}
