package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/minigames-hub/internal/game"
)

// deckByValue 依牌面分組，回傳每種符號的兩個牌位
func deckByValue(snap game.Snapshot) map[string][]int {
	groups := make(map[string][]int)
	for _, card := range snap.Memory.Cards {
		groups[card.Value] = append(groups[card.Value], card.ID)
	}
	return groups
}

// pickHidden 挑一張仍蓋著且不在排除名單內的牌
func pickHidden(t *testing.T, snap game.Snapshot, exclude ...int) int {
	t.Helper()
	skip := make(map[int]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	for _, card := range snap.Memory.Cards {
		if !card.Revealed && !card.Matched && !skip[card.ID] {
			return card.ID
		}
	}
	t.Fatal("no hidden card available")
	return -1
}

// TestMemoryMatch_Deal 發牌完整性：18 張、9 種符號各兩張、全部蓋著
func TestMemoryMatch_Deal(t *testing.T) {
	mm := game.NewMemoryMatch()
	snap := mm.Snapshot()

	require.Len(t, snap.Memory.Cards, 18)
	groups := deckByValue(snap)
	assert.Len(t, groups, 9)
	for value, ids := range groups {
		assert.Len(t, ids, 2, "symbol %s should appear exactly twice", value)
	}
	for _, card := range snap.Memory.Cards {
		assert.False(t, card.Revealed)
		assert.False(t, card.Matched)
	}
	assert.Equal(t, game.RoleX, snap.Memory.TurnRole)
}

// TestMemoryMatch_Validation 測試翻牌的輸入驗證
func TestMemoryMatch_Validation(t *testing.T) {
	tests := []struct {
		name    string
		actor   game.Role
		card    int
		wantErr error
	}{
		{"O cannot flip on X's turn", game.RoleO, 0, game.ErrNotYourTurn},
		{"card out of range", game.RoleX, 18, game.ErrInvalidCard},
		{"negative card", game.RoleX, -1, game.ErrInvalidCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := game.NewMemoryMatch()
			_, err := mm.Apply(tt.actor, game.Input{Card: tt.card})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestMemoryMatch_FlipSameCardTwice 同一張牌翻兩次被拒絕
func TestMemoryMatch_FlipSameCardTwice(t *testing.T) {
	mm := game.NewMemoryMatch()

	_, err := mm.Apply(game.RoleX, game.Input{Card: 0})
	require.NoError(t, err)
	_, err = mm.Apply(game.RoleX, game.Input{Card: 0})
	assert.ErrorIs(t, err, game.ErrInvalidCard)
}

// TestMemoryMatch_MatchKeepsTurn 配對成功：標記配對、得分、保留回合
func TestMemoryMatch_MatchKeepsTurn(t *testing.T) {
	mm := game.NewMemoryMatch()
	groups := deckByValue(mm.Snapshot())

	var pair []int
	for _, ids := range groups {
		pair = ids
		break
	}

	res, err := mm.Apply(game.RoleX, game.Input{Card: pair[0]})
	require.NoError(t, err)
	assert.True(t, res.Flipped)
	assert.Empty(t, res.Pending)

	res, err = mm.Apply(game.RoleX, game.Input{Card: pair[1]})
	require.NoError(t, err)
	assert.True(t, res.Match)
	assert.Equal(t, 1, res.Scores[game.RoleX])
	assert.False(t, res.GameOver)

	snap := mm.Snapshot()
	assert.True(t, snap.Memory.Cards[pair[0]].Matched)
	assert.True(t, snap.Memory.Cards[pair[1]].Matched)
	// 配對成功回合不換人
	assert.Equal(t, game.RoleX, snap.Memory.TurnRole)
}

// TestMemoryMatch_MismatchSwitchesTurn 配對失敗：回合換人、兩張牌待蓋回
func TestMemoryMatch_MismatchSwitchesTurn(t *testing.T) {
	mm := game.NewMemoryMatch()
	snap := mm.Snapshot()

	// 找兩張不同牌面的牌
	first := snap.Memory.Cards[0]
	second := first
	for _, card := range snap.Memory.Cards[1:] {
		if card.Value != first.Value {
			second = card
			break
		}
	}
	require.NotEqual(t, first.Value, second.Value)

	_, err := mm.Apply(game.RoleX, game.Input{Card: first.ID})
	require.NoError(t, err)
	res, err := mm.Apply(game.RoleX, game.Input{Card: second.ID})
	require.NoError(t, err)

	assert.False(t, res.Match)
	assert.ElementsMatch(t, []int{first.ID, second.ID}, res.Pending)
	assert.Equal(t, game.RoleO, res.NextTurn)

	// 失配的兩張牌仍是正面，等延遲的 Hide 蓋回
	snap = mm.Snapshot()
	assert.True(t, snap.Memory.Cards[first.ID].Revealed)
	assert.True(t, snap.Memory.Cards[second.ID].Revealed)

	// 蓋回之前任何再翻牌都被擋下（包括換到回合的 O）
	_, err = mm.Apply(game.RoleO, game.Input{Card: pickHidden(t, snap, first.ID, second.ID)})
	assert.ErrorIs(t, err, game.ErrCardsPending)

	mm.Hide([]int{first.ID, second.ID})
	snap = mm.Snapshot()
	assert.False(t, snap.Memory.Cards[first.ID].Revealed)
	assert.False(t, snap.Memory.Cards[second.ID].Revealed)

	// 蓋回後輪到 O 繼續翻
	_, err = mm.Apply(game.RoleO, game.Input{Card: pickHidden(t, snap, first.ID, second.ID)})
	assert.NoError(t, err)
}

// TestMemoryMatch_HideSkipsMatched 已配對的牌不會被蓋回
func TestMemoryMatch_HideSkipsMatched(t *testing.T) {
	mm := game.NewMemoryMatch()
	groups := deckByValue(mm.Snapshot())

	var pair []int
	for _, ids := range groups {
		pair = ids
		break
	}
	_, err := mm.Apply(game.RoleX, game.Input{Card: pair[0]})
	require.NoError(t, err)
	_, err = mm.Apply(game.RoleX, game.Input{Card: pair[1]})
	require.NoError(t, err)

	mm.Hide(pair)

	snap := mm.Snapshot()
	assert.True(t, snap.Memory.Cards[pair[0]].Revealed)
	assert.True(t, snap.Memory.Cards[pair[1]].Matched)
}

// TestMemoryMatch_FullGame 把整副牌翻完：X 全拿，整局 X 勝
func TestMemoryMatch_FullGame(t *testing.T) {
	mm := game.NewMemoryMatch()
	groups := deckByValue(mm.Snapshot())

	var last game.Result
	matched := 0
	for _, pair := range groups {
		_, err := mm.Apply(game.RoleX, game.Input{Card: pair[0]})
		require.NoError(t, err)
		res, err := mm.Apply(game.RoleX, game.Input{Card: pair[1]})
		require.NoError(t, err)
		require.True(t, res.Match)
		matched++
		last = res
	}

	require.Equal(t, 9, matched)
	assert.True(t, last.GameOver)
	assert.Equal(t, game.Outcome(game.RoleX), last.GameWinner)
	assert.Equal(t, 9, last.Scores[game.RoleX])
}

// TestMemoryMatch_RematchReshuffles 重賽重新發牌並清空配對
func TestMemoryMatch_RematchReshuffles(t *testing.T) {
	mm := game.NewMemoryMatch()
	groups := deckByValue(mm.Snapshot())

	var pair []int
	for _, ids := range groups {
		pair = ids
		break
	}
	_, err := mm.Apply(game.RoleX, game.Input{Card: pair[0]})
	require.NoError(t, err)
	_, err = mm.Apply(game.RoleX, game.Input{Card: pair[1]})
	require.NoError(t, err)

	mm.Rematch()

	snap := mm.Snapshot()
	assert.Equal(t, 0, snap.Memory.Matches[game.RoleX])
	for _, card := range snap.Memory.Cards {
		assert.False(t, card.Revealed)
		assert.False(t, card.Matched)
	}
	assert.Equal(t, game.RoleX, snap.Memory.TurnRole)
}
