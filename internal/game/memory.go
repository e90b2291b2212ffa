package game

import (
	"errors"
	"math/rand/v2"
)

var (
	ErrCardsPending = errors.New("Already flipped 2 cards, wait for result")
	ErrInvalidCard  = errors.New("Invalid card")
)

// 9 種符號、每種兩張，共 18 張牌
var memorySymbols = []string{"🍎", "🍌", "🍒", "🥝", "🍇", "🍋", "🍊", "🍑", "🥭"}

// Card 翻牌配對的一張牌
type Card struct {
	ID       int    `json:"id"`
	Value    string `json:"value"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// MemorySnapshot 翻牌配對的廣播狀態
type MemorySnapshot struct {
	Cards    []Card       `json:"cards"`
	Matches  map[Role]int `json:"matches"`
	TurnRole Role         `json:"turnRole"`
}

// MemoryMatch 翻牌配對引擎。
//
// 發牌在引擎建立當下就完成，牌面朝下的棋盤在只有一位玩家時
// 也能廣播出去讓前端先畫出格子；能不能翻由上層依房間狀態把關。
//
// 洗牌用 rand.Shuffle（Fisher–Yates），每個排列等機率。
type MemoryMatch struct {
	cards   []Card
	turn    Role
	flipped []int
	matches map[Role]int
}

// NewMemoryMatch 建立引擎並發一副新牌
func NewMemoryMatch() *MemoryMatch {
	m := &MemoryMatch{}
	m.Start()
	return m
}

func (m *MemoryMatch) Type() Type { return TypeMemoryMatch }

// Start 重新發牌：洗勻一副 9×2 的牌組，X 先翻
func (m *MemoryMatch) Start() {
	deck := make([]string, 0, len(memorySymbols)*2)
	deck = append(deck, memorySymbols...)
	deck = append(deck, memorySymbols...)
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	m.cards = make([]Card, len(deck))
	for i, value := range deck {
		m.cards[i] = Card{ID: i, Value: value}
	}
	m.turn = RoleX
	m.flipped = nil
	m.matches = newScores()
}

// Rematch 重賽即重新發牌
func (m *MemoryMatch) Rematch() { m.Start() }

func (m *MemoryMatch) FirstTurn() Role { return m.turn }

// Apply 翻一張牌。
// 翻到第二張時立刻比對：相同 → 標記配對、行動方得分，翻完全部配對時
// 以較高配對數者勝（平手為和局）；不同 → 兩張暫留正面，回合換人，
// 由呼叫方延遲後以 Hide 蓋回。
func (m *MemoryMatch) Apply(actor Role, in Input) (Result, error) {
	if actor != m.turn {
		return Result{}, ErrNotYourTurn
	}
	if len(m.flipped) >= 2 {
		return Result{}, ErrCardsPending
	}
	if in.Card < 0 || in.Card >= len(m.cards) {
		return Result{}, ErrInvalidCard
	}
	card := &m.cards[in.Card]
	if card.Revealed || card.Matched {
		return Result{}, ErrInvalidCard
	}

	card.Revealed = true
	m.flipped = append(m.flipped, card.ID)
	if len(m.flipped) < 2 {
		return Result{Flipped: true}, nil
	}

	first := &m.cards[m.flipped[0]]
	second := &m.cards[m.flipped[1]]
	if first.Value == second.Value {
		first.Matched = true
		second.Matched = true
		m.matches[actor]++
		m.flipped = nil

		res := Result{Match: true, Scores: copyScores(m.matches)}
		if m.matches[RoleX]+m.matches[RoleO] == len(m.cards)/2 {
			res.GameOver = true
			res.GameWinner = m.winner()
		}
		return res, nil
	}

	// 失配：兩張牌暫留正面、m.flipped 不清空——在延遲蓋回之前
	// 任何再翻牌都會被 ErrCardsPending 擋下
	pending := []int{first.ID, second.ID}
	m.turn = m.turn.Opponent()
	return Result{
		Flipped:  true,
		Pending:  pending,
		NextTurn: m.turn,
		Scores:   copyScores(m.matches),
	}, nil
}

// Hide 蓋回未配對的牌並解除翻牌封鎖。
// 延遲計時器觸發時呼叫；已配對的牌不受影響。
func (m *MemoryMatch) Hide(cardIDs []int) {
	for _, id := range cardIDs {
		if id < 0 || id >= len(m.cards) {
			continue
		}
		if !m.cards[id].Matched {
			m.cards[id].Revealed = false
		}
	}
	m.flipped = nil
}

func (m *MemoryMatch) winner() Outcome {
	switch {
	case m.matches[RoleX] == m.matches[RoleO]:
		return OutcomeDraw
	case m.matches[RoleX] > m.matches[RoleO]:
		return Outcome(RoleX)
	default:
		return Outcome(RoleO)
	}
}

func (m *MemoryMatch) Snapshot() Snapshot {
	cards := make([]Card, len(m.cards))
	copy(cards, m.cards)
	return Snapshot{
		Board:         make([]string, len(m.cards)),
		CurrentPlayer: m.turn,
		Memory: &MemorySnapshot{
			Cards:    cards,
			Matches:  copyScores(m.matches),
			TurnRole: m.turn,
		},
	}
}
