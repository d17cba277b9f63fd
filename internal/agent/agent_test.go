package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lpwatch/lpwatch/internal/advisor"
	"github.com/lpwatch/lpwatch/internal/state"
	"github.com/lpwatch/lpwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with real transaction semantics: writes
// are staged per transaction and only visible after Commit.
type fakeStore struct {
	wallets []types.Wallet

	positions       map[int64]*types.Position
	metrics         []types.PositionMetric
	recommendations []types.Recommendation

	nextPositionID int64
	nextMetricID   int64

	commits   int
	rollbacks int

	failAppendMetric bool
}

func newFakeStore(wallets ...types.Wallet) *fakeStore {
	return &fakeStore{
		wallets:        wallets,
		positions:      make(map[int64]*types.Position),
		nextPositionID: 1,
		nextMetricID:   1,
	}
}

func (s *fakeStore) GetActiveWallets(ctx context.Context) ([]types.Wallet, error) {
	return s.wallets, nil
}

func (s *fakeStore) Begin(ctx context.Context) (state.WalletTx, error) {
	return &fakeTx{store: s}, nil
}

type fakeTx struct {
	store *fakeStore

	stagedPositions []*types.Position
	stagedMetrics   []types.PositionMetric
	stagedRecs      []types.Recommendation
}

func (t *fakeTx) GetPositionByTokenID(ctx context.Context, tokenID int64) (*types.Position, error) {
	if p, ok := t.store.positions[tokenID]; ok {
		copied := *p
		return &copied, nil
	}
	for _, p := range t.stagedPositions {
		if p.TokenID == tokenID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) CreatePosition(ctx context.Context, position *types.Position) error {
	position.ID = t.store.nextPositionID
	t.store.nextPositionID++
	position.CreatedAt = time.Now().UTC()
	staged := *position
	t.stagedPositions = append(t.stagedPositions, &staged)
	return nil
}

func (t *fakeTx) AppendMetric(ctx context.Context, metric *types.PositionMetric) error {
	if t.store.failAppendMetric {
		return fmt.Errorf("simulated write failure")
	}
	metric.ID = t.store.nextMetricID
	t.store.nextMetricID++
	metric.SnapshotAt = time.Now().UTC()
	t.stagedMetrics = append(t.stagedMetrics, *metric)
	return nil
}

func (t *fakeTx) SaveRecommendation(ctx context.Context, rec *types.Recommendation) error {
	rec.ID = int64(len(t.store.recommendations)+len(t.stagedRecs)) + 1
	rec.GeneratedAt = time.Now().UTC()
	t.stagedRecs = append(t.stagedRecs, *rec)
	return nil
}

func (t *fakeTx) Commit() error {
	for _, p := range t.stagedPositions {
		t.store.positions[p.TokenID] = p
	}
	t.store.metrics = append(t.store.metrics, t.stagedMetrics...)
	t.store.recommendations = append(t.store.recommendations, t.stagedRecs...)
	t.store.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.store.rollbacks++
	return nil
}

type fakeMarket struct {
	positionsByWallet map[string][]types.ExternalPosition
	failWallets       map[string]bool
	historicalPrices  map[string]float64
	historicalErr     error
}

func (m *fakeMarket) GetPositions(ctx context.Context, walletAddress string) ([]types.ExternalPosition, error) {
	if m.failWallets[walletAddress] {
		return nil, fmt.Errorf("subgraph unavailable")
	}
	return m.positionsByWallet[walletAddress], nil
}

func (m *fakeMarket) GetHistoricalPrice(ctx context.Context, poolAddress string, timestamp int64) (float64, bool, error) {
	if m.historicalErr != nil {
		return 0, false, m.historicalErr
	}
	price, ok := m.historicalPrices[poolAddress]
	return price, ok, nil
}

// stubModel returns a fixed completion for every prompt.
type stubModel struct {
	output string
	err    error
}

func (m *stubModel) Complete(ctx context.Context, prompt string, maxTokens int, stop []string, temperature float64) (string, error) {
	return m.output, m.err
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (n *fakeNotifier) Send(ctx context.Context, message string) error {
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, message)
	return nil
}

func modelAnswerOutput(action, justification string) string {
	return fmt.Sprintf(`<final_answer>{"action": "%s", "justification": "%s"}`, action, justification)
}

func newTestAgent(t *testing.T, store *fakeStore, market *fakeMarket, model advisor.Model, sink *fakeNotifier) *Agent {
	t.Helper()
	agent, err := NewAgent(Config{
		Store:      store,
		MarketData: market,
		Advisor:    advisor.New(model),
		Notifier:   sink,
	})
	require.NoError(t, err)
	return agent
}

func wethPosition(tokenID int64) types.ExternalPosition {
	return types.ExternalPosition{
		TokenID:          tokenID,
		PoolAddress:      "0xpool",
		Token0Symbol:     "WBTC",
		Token1Symbol:     "WETH",
		TickLower:        -887220,
		TickUpper:        887220,
		PriceLower:       15.5,
		PriceUpper:       18.5,
		CurrentPrice:     19.2,
		DepositedToken0:  1.0,
		DepositedToken1:  17.0,
		UncollectedFees0: 0.001,
		UncollectedFees1: 0.02,
		Token0PriceUSD:   60000.0,
		Token1PriceUSD:   3000.0,
		CreatedAt:        time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
}

func TestNewAgent_RequiresAllDependencies(t *testing.T) {
	store := newFakeStore()
	market := &fakeMarket{}
	adv := advisor.New(&stubModel{})
	sink := &fakeNotifier{}

	_, err := NewAgent(Config{MarketData: market, Advisor: adv, Notifier: sink})
	assert.Error(t, err)
	_, err = NewAgent(Config{Store: store, Advisor: adv, Notifier: sink})
	assert.Error(t, err)
	_, err = NewAgent(Config{Store: store, MarketData: market, Notifier: sink})
	assert.Error(t, err)
	_, err = NewAgent(Config{Store: store, MarketData: market, Advisor: adv})
	assert.Error(t, err)
}

func TestRunCycle_OutOfRangePositionEndToEnd(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xabc": {wethPosition(812345)},
		},
		historicalPrices: map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("REBALANCE", "Price moved above the range.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	require.Len(t, store.positions, 1)
	position := store.positions[812345]
	assert.Equal(t, int64(1), position.WalletID)
	assert.Equal(t, "WBTC", position.Token0Symbol)

	require.Len(t, store.metrics, 1)
	metric := store.metrics[0]
	assert.Equal(t, 15.5, metric.PriceLower)
	assert.Equal(t, 18.5, metric.PriceUpper)
	assert.Equal(t, 19.2, metric.CurrentPrice)
	assert.False(t, metric.IsInRange)
	assert.Less(t, metric.ImpermanentLossPercent, 0.0)
	assert.Greater(t, metric.UnclaimedFeesUSD, 0.0)

	require.Len(t, store.recommendations, 1)
	rec := store.recommendations[0]
	assert.Equal(t, metric.ID, rec.MetricID)
	assert.Equal(t, types.ActionRebalance, rec.Action)
	assert.Equal(t, "Price moved above the range.", rec.Justification)
	assert.NotEmpty(t, rec.RawModelOutput)

	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "REBALANCE")
	assert.Equal(t, 1, store.commits)
}

func TestRunCycle_SameTokenTwiceCreatesOnePositionTwoMetrics(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xabc": {wethPosition(812345)},
		},
		historicalPrices: map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())
	agent.RunCycle(context.Background())

	assert.Len(t, store.positions, 1)
	assert.Len(t, store.metrics, 2)
	assert.Len(t, store.recommendations, 2)
	assert.Equal(t, store.metrics[0].PositionID, store.metrics[1].PositionID)
}

func TestRunCycle_MaintainSuppressesNotification(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	ext := wethPosition(1)
	ext.CurrentPrice = 17.0
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{"0xabc": {ext}},
		historicalPrices:  map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Position is healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	require.Len(t, store.recommendations, 1)
	assert.Equal(t, types.ActionMaintain, store.recommendations[0].Action)
	assert.Empty(t, sink.messages)
}

func TestRunCycle_UnorderedBoundsAreNormalized(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	ext := wethPosition(7)
	ext.PriceLower = 18.5
	ext.PriceUpper = 15.5
	ext.CurrentPrice = 16.0
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{"0xabc": {ext}},
		historicalPrices:  map[string]float64{"0xpool": 16.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	require.Len(t, store.metrics, 1)
	metric := store.metrics[0]
	assert.Equal(t, 15.5, metric.PriceLower)
	assert.Equal(t, 18.5, metric.PriceUpper)
	assert.True(t, metric.IsInRange)
}

func TestRunCycle_MissingHistoricalPriceRecordsZeroIL(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xabc": {wethPosition(9)},
		},
		// No entry for 0xpool
		historicalPrices: map[string]float64{},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	require.Len(t, store.metrics, 1)
	assert.Equal(t, 0.0, store.metrics[0].ImpermanentLossPercent)
	assert.Equal(t, 1, store.commits)
}

func TestRunCycle_FailingWalletDoesNotBlockOthers(t *testing.T) {
	broken := types.Wallet{ID: 1, Address: "0xbad", IsActive: true}
	healthy := types.Wallet{ID: 2, Address: "0xgood", IsActive: true}
	store := newFakeStore(broken, healthy)
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xgood": {wethPosition(55)},
		},
		failWallets:      map[string]bool{"0xbad": true},
		historicalPrices: map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	assert.Equal(t, 1, store.commits)
	require.Len(t, store.positions, 1)
	assert.Equal(t, int64(2), store.positions[55].WalletID)
}

func TestRunCycle_PersistenceFailureRollsBackWallet(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	store.failAppendMetric = true
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xabc": {wethPosition(3)},
		},
		historicalPrices: map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	assert.Equal(t, 0, store.commits)
	assert.Equal(t, 1, store.rollbacks)
	assert.Empty(t, store.positions)
	assert.Empty(t, store.metrics)
}

func TestRunCycle_GenerationErrorStillPersistsAndNotifies(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xabc": {wethPosition(4)},
		},
		historicalPrices: map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{}
	model := &stubModel{err: fmt.Errorf("model crashed")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	require.Len(t, store.recommendations, 1)
	assert.Equal(t, types.ActionGenerationError, store.recommendations[0].Action)
	assert.Len(t, sink.messages, 1)
	assert.Equal(t, 1, store.commits)
}

func TestRunCycle_NotificationFailureDoesNotRollBack(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xabc", IsActive: true}
	store := newFakeStore(wallet)
	market := &fakeMarket{
		positionsByWallet: map[string][]types.ExternalPosition{
			"0xabc": {wethPosition(5)},
		},
		historicalPrices: map[string]float64{"0xpool": 17.0},
	}
	sink := &fakeNotifier{err: fmt.Errorf("telegram down")}
	model := &stubModel{output: modelAnswerOutput("CLOSE", "Out of range for too long.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	assert.Equal(t, 1, store.commits)
	assert.Len(t, store.recommendations, 1)
	assert.Equal(t, types.ActionClose, store.recommendations[0].Action)
}

func TestRunCycle_WalletWithNoPositionsIsSkipped(t *testing.T) {
	wallet := types.Wallet{ID: 1, Address: "0xempty", IsActive: true}
	store := newFakeStore(wallet)
	market := &fakeMarket{positionsByWallet: map[string][]types.ExternalPosition{}}
	sink := &fakeNotifier{}
	model := &stubModel{output: modelAnswerOutput("MAINTAIN", "Healthy.")}

	agent := newTestAgent(t, store, market, model, sink)
	agent.RunCycle(context.Background())

	assert.Equal(t, 0, store.commits)
	assert.Empty(t, store.metrics)
}
