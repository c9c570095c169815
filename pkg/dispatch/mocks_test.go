package dispatch

import (
	"context"
	"math/big"
	"sync"

	"github.com/montip/tipbot-middleware/pkg/chain"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
)

const botEOA = "0xb000000000000000000000000000000000000b07"

// MockChain is a mock implementation of ChainClient
type MockChain struct {
	BotAddressFunc       func() string
	BotAddressOfFunc     func(ctx context.Context, wallet string) (string, error)
	NativeBalanceFunc    func(ctx context.Context, address string) (*big.Int, error)
	TokenBalanceFunc     func(ctx context.Context, tokenContract, holder string) (*big.Int, error)
	PendingNonceFunc     func(ctx context.Context) (uint64, error)
	SendTipFunc          func(ctx context.Context, wallet, recipient, tokenContract string, amount *big.Int, nonce uint64) (string, error)
	ReceiptFunc          func(ctx context.Context, txHash string) (*chain.Receipt, error)
	KnownTransactionFunc func(ctx context.Context, txHash string) (bool, error)
}

func (m *MockChain) BotAddress() string {
	if m.BotAddressFunc != nil {
		return m.BotAddressFunc()
	}
	return botEOA
}

func (m *MockChain) BotAddressOf(ctx context.Context, wallet string) (string, error) {
	if m.BotAddressOfFunc != nil {
		return m.BotAddressOfFunc(ctx, wallet)
	}
	return botEOA, nil
}

func (m *MockChain) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if m.NativeBalanceFunc != nil {
		return m.NativeBalanceFunc(ctx, address)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil), nil
}

func (m *MockChain) TokenBalance(ctx context.Context, tokenContract, holder string) (*big.Int, error) {
	if m.TokenBalanceFunc != nil {
		return m.TokenBalanceFunc(ctx, tokenContract, holder)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil), nil
}

func (m *MockChain) PendingNonce(ctx context.Context) (uint64, error) {
	if m.PendingNonceFunc != nil {
		return m.PendingNonceFunc(ctx)
	}
	return 0, nil
}

func (m *MockChain) SendTip(ctx context.Context, wallet, recipient, tokenContract string, amount *big.Int, nonce uint64) (string, error) {
	if m.SendTipFunc != nil {
		return m.SendTipFunc(ctx, wallet, recipient, tokenContract, amount, nonce)
	}
	return "0xhash", nil
}

func (m *MockChain) Receipt(ctx context.Context, txHash string) (*chain.Receipt, error) {
	if m.ReceiptFunc != nil {
		return m.ReceiptFunc(ctx, txHash)
	}
	return &chain.Receipt{Status: 1, BlockNumber: 100, GasUsed: 21000}, nil
}

func (m *MockChain) KnownTransaction(ctx context.Context, txHash string) (bool, error) {
	if m.KnownTransactionFunc != nil {
		return m.KnownTransactionFunc(ctx, txHash)
	}
	return false, nil
}

// FakeStore is an in-memory TransactionStore
type FakeStore struct {
	mu      sync.Mutex
	records map[string]*tipdb.TransactionRecord
	nonces  map[string]int64
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		records: make(map[string]*tipdb.TransactionRecord),
		nonces:  make(map[string]int64),
	}
}

func (s *FakeStore) Record(eventID string) *tipdb.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[eventID]; ok {
		copied := *record
		return &copied
	}
	return nil
}

func (s *FakeStore) ReserveNonce(ctx context.Context, address string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.nonces[address] + 1
	if _, seen := s.nonces[address]; !seen {
		next = floor
	}
	if floor > next {
		next = floor
	}
	s.nonces[address] = next
	return next, nil
}

func (s *FakeStore) CreateTransaction(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[eventID]; !ok {
		s.records[eventID] = &tipdb.TransactionRecord{EventID: eventID, Status: tipdb.StatusPending}
	}
	return nil
}

func (s *FakeStore) GetTransaction(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error) {
	return s.Record(eventID), nil
}

func (s *FakeStore) MarkSubmitted(ctx context.Context, eventID, txHash string, nonce int64, retryCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[eventID]; ok && !record.Status.Terminal() {
		record.Status = tipdb.StatusSubmitted
		record.TxHash = txHash
		record.Nonce = nonce
		record.RetryCount = retryCount
	}
	return nil
}

func (s *FakeStore) MarkConfirmed(ctx context.Context, eventID string, blockNumber, gasUsed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[eventID]; ok && !record.Status.Terminal() {
		record.Status = tipdb.StatusConfirmed
		record.BlockNumber = blockNumber
		record.GasUsed = gasUsed
	}
	return nil
}

func (s *FakeStore) MarkFailed(ctx context.Context, eventID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[eventID]; ok && !record.Status.Terminal() {
		record.Status = tipdb.StatusFailed
		record.LastError = reason
	}
	return nil
}

func (s *FakeStore) RecordAttemptError(ctx context.Context, eventID, lastError string, retryCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[eventID]; ok {
		record.LastError = lastError
		record.RetryCount = retryCount
	}
	return nil
}

func (s *FakeStore) ListInFlight(ctx context.Context) ([]*tipdb.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*tipdb.TransactionRecord
	for _, record := range s.records {
		if !record.Status.Terminal() {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *FakeStore) putSubmitted(eventID, txHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[eventID] = &tipdb.TransactionRecord{
		EventID: eventID,
		Status:  tipdb.StatusSubmitted,
		TxHash:  txHash,
	}
}

func (s *FakeStore) putPending(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[eventID] = &tipdb.TransactionRecord{
		EventID: eventID,
		Status:  tipdb.StatusPending,
	}
}
