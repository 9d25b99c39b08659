package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"echodao-backend/internal/blockchain"
	"echodao-backend/internal/hashing"
	"echodao-backend/internal/intelligence"
	"echodao-backend/internal/model"
	"echodao-backend/internal/quota"
	"echodao-backend/internal/storage/ipfs"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	daoAddress      = common.HexToAddress("0x00000000000000000000000000000000000000da")
	treasuryAddress = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	signer          = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	userAddress      = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	recipientAddress = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

type transacted struct {
	call      blockchain.Call
	gasBuffer uint64
}

type fakeLedger struct {
	mu    sync.Mutex
	block uint64
	// tick is added to the block height after every read
	tick uint64
	err  error
	sent []transacted
}

func (l *fakeLedger) Account() common.Address { return signer }

func (l *fakeLedger) BlockNumber(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	block := l.block
	l.block += l.tick
	return block, nil
}

func (l *fakeLedger) Transact(_ context.Context, call blockchain.Call, gasBuffer uint64) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.sent = append(l.sent, transacted{call: call, gasBuffer: gasBuffer})
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.BigToHash(big.NewInt(int64(len(l.sent))))}, nil
}

func (l *fakeLedger) transactions() []transacted {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]transacted(nil), l.sent...)
}

type createArgs struct {
	target   common.Address
	value    *big.Int
	callData []byte
}

type fakeDAO struct {
	mu        sync.Mutex
	proposals map[uint64]model.Proposal
	failing   map[uint64]bool
	voted     bool
	votedErr  error
	createdID *uint64
	created   []createArgs
}

func newFakeDAO(proposals ...model.Proposal) *fakeDAO {
	d := &fakeDAO{proposals: make(map[uint64]model.Proposal), failing: make(map[uint64]bool)}
	for _, p := range proposals {
		d.proposals[p.ID] = p
	}
	return d
}

func (d *fakeDAO) Address() common.Address { return daoAddress }

func (d *fakeDAO) NextProposalID(context.Context) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var next uint64
	for id := range d.proposals {
		if id+1 > next {
			next = id + 1
		}
	}
	return next, nil
}

func (d *fakeDAO) Proposal(_ context.Context, id uint64) (model.Proposal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing[id] {
		return model.Proposal{}, blockchain.ErrNetworkTimeout
	}
	p, ok := d.proposals[id]
	if !ok {
		return model.Proposal{ID: id}, nil
	}
	return p, nil
}

func (d *fakeDAO) HasVoted(context.Context, uint64, common.Address) (bool, error) {
	return d.voted, d.votedErr
}

func (d *fakeDAO) CreateProposalCall(target common.Address, value *big.Int, callData []byte, _ string) (blockchain.Call, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, createArgs{target: target, value: value, callData: callData})
	return blockchain.Call{To: daoAddress, Method: "createProposal"}, nil
}

func (d *fakeDAO) VoteCall(uint64, bool) (blockchain.Call, error) {
	return blockchain.Call{To: daoAddress, Method: "vote"}, nil
}

func (d *fakeDAO) ExecuteCall(uint64) (blockchain.Call, error) {
	return blockchain.Call{To: daoAddress, Method: "executeProposal"}, nil
}

func (d *fakeDAO) CreatedProposalID(*types.Receipt) (uint64, error) {
	if d.createdID == nil {
		return 0, blockchain.ErrEventNotFound
	}
	return *d.createdID, nil
}

func (d *fakeDAO) ExecutedEvent(*types.Receipt) (map[string]interface{}, error) {
	return map[string]interface{}{"proposal_id": uint64(1)}, nil
}

type fakeVault struct {
	owner   common.Address
	balance *big.Int
}

func (v *fakeVault) Address() common.Address { return treasuryAddress }
func (v *fakeVault) Owner(context.Context) (common.Address, error) { return v.owner, nil }
func (v *fakeVault) Balance(context.Context) (*big.Int, error) { return new(big.Int).Set(v.balance), nil }

type fakeFunder struct {
	mu        sync.Mutex
	requested []*big.Int
	// entered and gate hold EnsureFunded until gate is closed
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeFunder) EnsureFunded(ctx context.Context, required *big.Int) error {
	f.mu.Lock()
	f.requested = append(f.requested, new(big.Int).Set(required))
	gate := f.gate
	f.mu.Unlock()

	if gate == nil {
		return nil
	}
	f.entered <- struct{}{}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeContent struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func (c *fakeContent) Put(_ context.Context, data []byte, _ string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := "bafkrei" + hashing.Calculate(data)[:20]
	c.blobs[id] = data
	return id, nil
}

func (c *fakeContent) Get(_ context.Context, contentID string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.blobs[contentID]
	if !ok {
		return nil, errors.New("not pinned")
	}
	return data, nil
}

type fakeArchive struct {
	reports map[string]model.Report
}

func (a *fakeArchive) SaveReport(_ context.Context, report model.Report) error {
	a.reports[report.ContentID] = report
	return nil
}

func (a *fakeArchive) FindReport(_ context.Context, contentID string) (model.Report, error) {
	r, ok := a.reports[contentID]
	if !ok {
		return model.Report{}, errors.New("report not found")
	}
	return r, nil
}

type fixture struct {
	app     *App
	ledger  *fakeLedger
	dao     *fakeDAO
	vault   *fakeVault
	funder  *fakeFunder
	content *fakeContent
	store   *quota.MemoryStore
}

func newFixture(t *testing.T, proposals ...model.Proposal) *fixture {
	t.Helper()

	f := &fixture{
		ledger:  &fakeLedger{block: 50},
		dao:     newFakeDAO(proposals...),
		vault:   &fakeVault{owner: daoAddress, balance: new(big.Int)},
		funder:  &fakeFunder{},
		content: &fakeContent{blobs: make(map[string][]byte)},
		store:   quota.NewMemoryStore(),
	}

	limiter, err := quota.NewLimiter(zap.NewNop(), f.store, 3, model.MustParseEther("0.01"))
	require.NoError(t, err)

	f.app, err = NewApp(zap.NewNop(), Deps{
		Ledger:     f.ledger,
		DAO:        f.dao,
		Treasury:   f.vault,
		Funder:     f.funder,
		Quota:      limiter,
		Content:    f.content,
		Summarizer: intelligence.NewLeadSummarizer(),
		Scorer:     intelligence.HeuristicScorer{},
	}, Config{
		GasBuffer:        50000,
		ExecuteGasBuffer: 100000,
		BatchConcurrency: 10,
		BatchTimeout:     5 * time.Second,
		MaxLedgerWorkers: 4,
	})
	require.NoError(t, err)

	return f
}

func passedProposal(id uint64) model.Proposal {
	return model.Proposal{ID: id, Target: common.HexToAddress(recipientAddress), Value: new(big.Int), BlockStart: 83, BlockEnd: 100, YesVotes: 2, NoVotes: 1}
}

func requireGuard(t *testing.T, err error, kind GuardKind) *GuardError {
	t.Helper()
	var guardErr *GuardError
	require.ErrorAs(t, err, &guardErr)
	assert.Equal(t, kind, guardErr.Kind)
	return guardErr
}

func TestExecuteBlockBoundary(t *testing.T) {
	f := newFixture(t, passedProposal(1))

	f.ledger.block = 100
	_, err := f.app.Execute(context.Background(), 1)
	requireGuard(t, err, GuardVotingNotEnded)
	assert.Empty(t, f.ledger.transactions())

	f.ledger.block = 101
	result, err := f.app.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TxHash)
	assert.Equal(t, uint64(1), result.Events["proposal_id"])

	sent := f.ledger.transactions()
	require.Len(t, sent, 1)
	assert.Equal(t, "executeProposal", sent[0].call.Method)
	assert.Equal(t, uint64(100000), sent[0].gasBuffer)
}

func TestExecuteGuards(t *testing.T) {
	release, err := blockchain.ReleaseCallData(common.HexToAddress(recipientAddress), model.MustParseEther("5").Wei())
	require.NoError(t, err)

	tie := passedProposal(1)
	tie.NoVotes = tie.YesVotes

	executed := passedProposal(1)
	executed.Executed = true

	disbursement := passedProposal(1)
	disbursement.Target = treasuryAddress
	disbursement.CallData = release

	tests := []struct {
		name     string
		proposal model.Proposal
		owner    common.Address
		balance  string
		block    uint64
		kind     GuardKind
	}{
		{name: "tie", proposal: tie, owner: daoAddress, kind: GuardQuorumFailed},
		{name: "tie at the last voting block", proposal: tie, owner: daoAddress, block: 100, kind: GuardQuorumFailed},
		{name: "tie while voting", proposal: tie, owner: daoAddress, block: 90, kind: GuardQuorumFailed},
		{name: "executed", proposal: executed, owner: daoAddress, kind: GuardAlreadyExecuted},
		{name: "not owner", proposal: passedProposal(1), owner: signer, kind: GuardNotOwner},
		{name: "insufficient treasury", proposal: disbursement, owner: daoAddress, balance: "1", kind: GuardInsufficientTreasury},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.proposal)
			f.ledger.block = 101
			if tc.block != 0 {
				f.ledger.block = tc.block
			}
			f.vault.owner = tc.owner
			if tc.balance != "" {
				f.vault.balance = model.MustParseEther(tc.balance).Wei()
			}

			_, err := f.app.Execute(context.Background(), 1)
			requireGuard(t, err, tc.kind)
			assert.Empty(t, f.ledger.transactions())
		})
	}
}

func TestExecuteFundedDisbursement(t *testing.T) {
	release, err := blockchain.ReleaseCallData(common.HexToAddress(recipientAddress), model.MustParseEther("5").Wei())
	require.NoError(t, err)

	p := passedProposal(1)
	p.Target = treasuryAddress
	p.CallData = release

	f := newFixture(t, p)
	f.ledger.block = 101
	f.vault.balance = model.MustParseEther("5").Wei()

	_, err = f.app.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, f.ledger.transactions(), 1)
}

func TestExecuteUndecodablePayloadProceeds(t *testing.T) {
	p := passedProposal(1)
	p.Target = treasuryAddress
	p.CallData = []byte{0xde, 0xad, 0xbe, 0xef, 0x01}

	f := newFixture(t, p)
	f.ledger.block = 101

	_, err := f.app.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, f.ledger.transactions(), 1)
}

func TestExecuteUnknownProposal(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.Execute(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestExecuteSurfacesSimulationRejection(t *testing.T) {
	f := newFixture(t, passedProposal(1))
	f.ledger.block = 101
	f.ledger.err = &blockchain.SimulationError{Method: "executeProposal", Reason: "Treasury: not owner"}

	_, err := f.app.Execute(context.Background(), 1)
	var simErr *blockchain.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, "Treasury: not owner", simErr.Reason)
}

func TestFetchManyDropsMissing(t *testing.T) {
	f := newFixture(t, passedProposal(1), passedProposal(2), passedProposal(3))
	f.dao.failing[3] = true

	found := f.app.FetchMany(context.Background(), []uint64{1, 2, 3, 999})
	assert.Len(t, found, 2)
	assert.Contains(t, found, uint64(1))
	assert.Contains(t, found, uint64(2))
}

func TestListProposalsOrdered(t *testing.T) {
	f := newFixture(t, passedProposal(2), passedProposal(0), passedProposal(1))

	list, err := f.app.ListProposals(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, p := range list {
		assert.Equal(t, uint64(i), p.ID)
	}
}

func TestProposalState(t *testing.T) {
	f := newFixture(t, passedProposal(1))

	f.ledger.block = 100
	state, err := f.app.ProposalState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusActive, state.Status)
	assert.False(t, state.CanExecute)

	f.ledger.block = 101
	state, err = f.app.ProposalState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusPassed, state.Status)
	assert.True(t, state.CanExecute)
	assert.Equal(t, uint64(101), state.CurrentBlock)

	_, err = f.app.ProposalState(context.Background(), 7)
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestTreasuryInfo(t *testing.T) {
	f := newFixture(t)
	f.vault.balance = big.NewInt(42)

	info, err := f.app.TreasuryInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, treasuryAddress, info.Address)
	assert.True(t, info.OwnedByGovernance)
	assert.Equal(t, big.NewInt(42), info.Balance)

	f.vault.owner = signer
	info, err = f.app.TreasuryInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, info.OwnedByGovernance)
}

func draft(amount, fee string) model.ProposalDraft {
	return model.ProposalDraft{
		Title:       "Clinic",
		Description: "Fund the clinic roof",
		Amount:      model.MustParseEther(amount),
		Recipient:   recipientAddress,
		UserAddress: userAddress,
		FeePaid:     model.MustParseEther(fee),
	}
}

func TestQueuedCreatesDoNotHoldWorkers(t *testing.T) {
	f := newFixture(t, passedProposal(1))
	f.funder.entered = make(chan struct{}, 10)
	f.funder.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.app.CreateProposal(context.Background(), draft("0", "0"))
		}()
	}

	select {
	case <-f.funder.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("no creation reached funding")
	}

	// one creation holds a worker, the others wait for the user's lock
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p, err := f.app.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.ID)

	close(f.funder.gate)
	wg.Wait()
	// the daily limit of three stops the rest
	assert.Len(t, f.ledger.transactions(), 3)
}

func TestCreateGivesUpWaitingForUserLock(t *testing.T) {
	f := newFixture(t)
	f.funder.entered = make(chan struct{}, 10)
	f.funder.gate = make(chan struct{})
	defer close(f.funder.gate)

	go func() {
		_, _ = f.app.CreateProposal(context.Background(), draft("0", "0"))
	}()
	<-f.funder.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.app.CreateProposal(ctx, draft("0", "0"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateFirstProposalIsFree(t *testing.T) {
	f := newFixture(t)
	id := uint64(0)
	f.dao.createdID = &id

	result, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
	require.NoError(t, err)
	assert.True(t, result.IsFree)
	assert.True(t, result.FeeCharged.IsZero())
	require.NotNil(t, result.ProposalID)
	assert.Equal(t, uint64(0), *result.ProposalID)

	// a zero amount targets the recipient directly with no payload
	require.Len(t, f.dao.created, 1)
	assert.Equal(t, common.HexToAddress(recipientAddress), f.dao.created[0].target)
	assert.Empty(t, f.dao.created[0].callData)

	require.Len(t, f.funder.requested, 1)
	assert.Equal(t, 0, f.funder.requested[0].Sign())

	sent := f.ledger.transactions()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(50000), sent[0].gasBuffer)

	records, err := f.store.Records(context.Background(), userAddress)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsFree)
	assert.Equal(t, result.TxHash, records[0].TxHash)
}

func TestCreateSecondProposalRequiresFee(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
	require.NoError(t, err)

	_, err = f.app.CreateProposal(context.Background(), draft("1", "0"))
	guardErr := requireGuard(t, err, GuardFeeInsufficient)
	require.NotNil(t, guardErr.RequiredFee)
	assert.Equal(t, "0.01", guardErr.RequiredFee.String())
	assert.Len(t, f.ledger.transactions(), 1)

	result, err := f.app.CreateProposal(context.Background(), draft("1", "0.01"))
	require.NoError(t, err)
	assert.False(t, result.IsFree)
	assert.Equal(t, "0.01", result.FeeCharged.String())
	assert.Nil(t, result.ProposalID)

	// a disbursement targets the treasury with a release payload
	created := f.dao.created[len(f.dao.created)-1]
	assert.Equal(t, treasuryAddress, created.target)
	release, err := blockchain.DecodeRelease(created.callData)
	require.NoError(t, err)
	assert.Equal(t, 0, release.Amount.Cmp(model.MustParseEther("1").Wei()))

	last := f.funder.requested[len(f.funder.requested)-1]
	assert.Equal(t, 0, last.Cmp(model.MustParseEther("1").Wei()))
}

func TestCreateZeroAmountSkipsFee(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
	require.NoError(t, err)

	result, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
	require.NoError(t, err)
	assert.False(t, result.IsFree)
	assert.True(t, result.FeeCharged.IsZero())
}

func TestCreateQuotaExceeded(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
		require.NoError(t, err)
	}

	_, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
	guardErr := requireGuard(t, err, GuardQuotaExceeded)
	assert.Contains(t, guardErr.Message, "Daily limit reached")
	assert.Len(t, f.ledger.transactions(), 3)
}

func TestCreateFailureDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t)
	f.ledger.err = &blockchain.SimulationError{Method: "createProposal", Reason: "boom"}

	_, err := f.app.CreateProposal(context.Background(), draft("0", "0"))
	require.Error(t, err)

	records, err := f.store.Records(context.Background(), userAddress)
	require.NoError(t, err)
	assert.Empty(t, records)

	status, err := f.app.CheckLimit(context.Background(), userAddress)
	require.NoError(t, err)
	assert.True(t, status.IsFree)
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	f := newFixture(t)

	bad := draft("1", "0")
	bad.Recipient = "0x1234"
	_, err := f.app.CreateProposal(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.app.CheckLimit(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVote(t *testing.T) {
	f := newFixture(t, passedProposal(1))

	result, err := f.app.Vote(context.Background(), 1, true)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TxHash)

	_, err = f.app.Vote(context.Background(), 9, true)
	assert.ErrorIs(t, err, ErrProposalNotFound)

	f.dao.voted = true
	_, err = f.app.Vote(context.Background(), 1, false)
	requireGuard(t, err, GuardAlreadyVoted)

	// an unreadable vote record leaves the decision to the simulation
	f.dao.voted, f.dao.votedErr = false, blockchain.ErrNetworkTimeout
	_, err = f.app.Vote(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Len(t, f.ledger.transactions(), 2)
}

func TestSubmitReport(t *testing.T) {
	f := newFixture(t)
	archive := &fakeArchive{reports: make(map[string]model.Report)}
	f.app.archive = archive

	data := []byte("On 2024-03-02 the pump at well 4 failed. Repair cost 300 CELO, see https://example.org/invoice.")
	report, err := f.app.SubmitReport(context.Background(), "well.txt", data)
	require.NoError(t, err)
	assert.Equal(t, "well.txt", report.Filename)
	assert.Equal(t, hashing.Calculate(data), report.FileHash)
	assert.NotEmpty(t, report.ContentID)
	assert.NotEmpty(t, report.Summary)
	assert.Equal(t, intelligence.Label(report.TrustScore), report.Credibility)
	assert.Contains(t, archive.reports, report.ContentID)

	check, err := f.app.VerifyIntegrity(context.Background(), report.ContentID, "")
	require.NoError(t, err)
	assert.True(t, check.Valid)

	check, err = f.app.VerifyIntegrity(context.Background(), report.ContentID, hashing.CalculateFromStr("something else"))
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, report.FileHash, check.ActualHash)
}

func TestSubmitBinaryReport(t *testing.T) {
	f := newFixture(t)

	report, err := f.app.SubmitReport(context.Background(), "photo.png", []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	assert.Empty(t, report.Summary)
	assert.NotEmpty(t, report.FileHash)
}

func TestSubmitReportStorageDown(t *testing.T) {
	f := newFixture(t)
	f.content.err = errors.New("503 Service Unavailable")

	_, err := f.app.SubmitReport(context.Background(), "well.txt", []byte("text"))
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	_, err = f.app.VerifyIntegrity(context.Background(), "bafkreiabc", "00")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestVerifyReportText(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.app.VerifyReportText("   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	summary, trust, err := f.app.VerifyReportText("The borehole was dug in 2023. It serves 400 households.")
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
	assert.Equal(t, intelligence.Label(trust.Score), trust.Label)
}

func TestExecuteWhenReady(t *testing.T) {
	f := newFixture(t, passedProposal(1))
	f.ledger.block = 97
	f.ledger.tick = 1

	result, err := f.app.ExecuteWhenReady(context.Background(), 1, time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TxHash)
	assert.Len(t, f.ledger.transactions(), 1)
}

func TestExecuteWhenReadyStopsOnCancel(t *testing.T) {
	f := newFixture(t, passedProposal(1))
	f.ledger.block = 10

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.app.ExecuteWhenReady(ctx, 1, time.Millisecond)
	require.Error(t, err)
	assert.Empty(t, f.ledger.transactions())
}

func TestVerifyIntegrityInvalidContentID(t *testing.T) {
	f := newFixture(t)
	f.content.err = fmt.Errorf("%w: bad prefix", ipfs.ErrInvalidContentID)

	_, err := f.app.VerifyIntegrity(context.Background(), "not-a-cid", "00")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
