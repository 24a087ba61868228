package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestStartAssignsMonotonicIDs(t *testing.T) {
	m := newTestManager(t)
	tx1, err := m.Start("session-a")
	require.NoError(t, err)
	tx2, err := m.Start("session-a")
	require.NoError(t, err)
	assert.Less(t, tx1.ID, tx2.ID)
	assert.Equal(t, StatusActive, tx1.Status)
}

func TestUndoLogLenMatchesAppliedOperations(t *testing.T) {
	m := newTestManager(t)
	tx, err := m.Start("s1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := m.LogOperation(tx, "CreateNode", "n1", func() error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 3, tx.UndoLogLen())
}

func TestRollbackReplaysUndoInReverseOrder(t *testing.T) {
	m := newTestManager(t)
	tx, err := m.Start("s1")
	require.NoError(t, err)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, m.LogOperation(tx, "op", "", func() error {
			order = append(order, i)
			return nil
		}))
	}

	require.NoError(t, m.Rollback(tx))
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Equal(t, StatusRolledBack, tx.Status)
	assert.Equal(t, 0, tx.UndoLogLen())
	assert.Nil(t, m.Get(tx.ID))
}

func TestCommitClearsUndoLogAndRemovesFromActiveTable(t *testing.T) {
	m := newTestManager(t)
	tx, err := m.Start("s1")
	require.NoError(t, err)
	require.NoError(t, m.LogOperation(tx, "op", "", func() error { return nil }))

	require.NoError(t, m.Commit(tx))
	assert.Equal(t, StatusCommitted, tx.Status)
	assert.Equal(t, 0, tx.UndoLogLen())
	assert.Nil(t, m.Get(tx.ID))
}

func TestCommitAfterFailedOperationIsRejected(t *testing.T) {
	m := newTestManager(t)
	tx, err := m.Start("s1")
	require.NoError(t, err)
	tx.Status = StatusFailed

	err = m.Commit(tx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "only ROLLBACK is valid")
}

func TestSetTransactionCharacteristicsConsumedByNextStartOnly(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetTransactionCharacteristics(ReadCommitted, AccessReadOnly))

	tx1, err := m.Start("s1")
	require.NoError(t, err)
	assert.Equal(t, AccessReadOnly, tx1.AccessMode)

	tx2, err := m.Start("s1")
	require.NoError(t, err)
	assert.Equal(t, AccessReadWrite, tx2.AccessMode, "staged characteristics are consumed by the first Start only")
}

func TestSetTransactionCharacteristicsRejectsUnsupportedIsolation(t *testing.T) {
	m := newTestManager(t)
	err := m.SetTransactionCharacteristics("SERIALIZABLE", AccessReadWrite)
	assert.Error(t, err)
}

func TestGetSessionTransactionsFiltersBySession(t *testing.T) {
	m := newTestManager(t)
	txA, err := m.Start("alice")
	require.NoError(t, err)
	_, err = m.Start("bob")
	require.NoError(t, err)

	ids := m.GetSessionTransactions("alice")
	assert.Equal(t, []uint64{txA.ID}, ids)
}

func TestWALSurvivesRestartAndReplaysCommitted(t *testing.T) {
	dir := t.TempDir()
	m1, err := NewManager(dir, false)
	require.NoError(t, err)

	tx, err := m1.Start("s1")
	require.NoError(t, err)
	require.NoError(t, m1.LogOperation(tx, "CreateNode", "n1", func() error { return nil }))
	require.NoError(t, m1.Commit(tx))
	require.NoError(t, m1.Close())

	m2, err := NewManager(dir, false)
	require.NoError(t, err)
	defer m2.Close()

	entries, err := m2.wal.ReadAll()
	require.NoError(t, err)
	committed := RecoverCommitted(entries)
	assert.True(t, committed[tx.ID])

	_, err = m2.Start("s1")
	require.NoError(t, err)
	assert.Greater(t, m2.wal.NextGlobalSeq(), entries[len(entries)-1].GlobalSeq, "transaction ids in a fresh manager start from 1 again, but global wal seq keeps advancing")
}

func TestRollbackReportsUndoErrorButRunsAll(t *testing.T) {
	m := newTestManager(t)
	tx, err := m.Start("s1")
	require.NoError(t, err)

	var ran []int
	require.NoError(t, m.LogOperation(tx, "op", "", func() error { ran = append(ran, 0); return nil }))
	require.NoError(t, m.LogOperation(tx, "op", "", func() error { ran = append(ran, 1); return assert.AnError }))
	require.NoError(t, m.LogOperation(tx, "op", "", func() error { ran = append(ran, 2); return nil }))

	err = m.Rollback(tx)
	assert.Error(t, err)
	assert.Equal(t, []int{2, 1, 0}, ran)
}
