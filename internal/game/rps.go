package game

import "errors"

var (
	ErrGameFinished  = errors.New("Game is already finished")
	ErrInvalidChoice = errors.New("Invalid choice")
)

const rpsWinTarget = 5

// 固定的剋制表：石頭剋剪刀、剪刀剋布、布剋石頭
var beats = map[Choice]Choice{
	ChoiceRock:     ChoiceScissors,
	ChoiceScissors: ChoicePaper,
	ChoicePaper:    ChoiceRock,
}

// RockPaperScissors 猜拳引擎。
//
// 同時出拳協議：
//   - 雙方各自提交隱藏的出拳，集滿兩份才結算（先提交的一方收到 waiting）
//   - 結算後清空出拳進入下一回合；整局結束的那一回合保留出拳，
//     讓終局結果的 payload 還看得到雙方出了什麼
//   - 先到 5 勝者贏整局
type RockPaperScissors struct {
	choices map[Role]Choice
	round   int
	scores  map[Role]int
}

// NewRockPaperScissors 建立猜拳引擎
func NewRockPaperScissors() *RockPaperScissors {
	r := &RockPaperScissors{}
	r.Start()
	return r
}

func (r *RockPaperScissors) Type() Type { return TypeRockPaperScissors }

// Start 開新的一局：清空出拳與計分，回合數歸 1
func (r *RockPaperScissors) Start() {
	r.choices = make(map[Role]Choice)
	r.round = 1
	r.scores = newScores()
}

// Rematch 重賽與開新局等價
func (r *RockPaperScissors) Rematch() { r.Start() }

// FirstTurn 猜拳沒有回合順序，慣例回報 X
func (r *RockPaperScissors) FirstTurn() Role { return RoleX }

// Apply 提交一次出拳；集滿兩份時結算回合
func (r *RockPaperScissors) Apply(actor Role, in Input) (Result, error) {
	switch in.Choice {
	case ChoiceRock, ChoicePaper, ChoiceScissors:
	default:
		return Result{}, ErrInvalidChoice
	}

	r.choices[actor] = in.Choice
	if len(r.choices) < 2 {
		return Result{Waiting: true}, nil
	}

	choiceX := r.choices[RoleX]
	choiceO := r.choices[RoleO]
	winner := resolveRound(choiceX, choiceO)
	if role, ok := winner.Role(); ok {
		r.scores[role]++
	}

	round := r.round
	r.round++

	res := Result{
		RoundOver:   true,
		RoundWinner: winner,
		Choices:     map[Role]Choice{RoleX: choiceX, RoleO: choiceO},
		Round:       round,
		Scores:      copyScores(r.scores),
	}

	switch {
	case r.scores[RoleX] >= rpsWinTarget:
		res.GameOver = true
		res.GameWinner = Outcome(RoleX)
	case r.scores[RoleO] >= rpsWinTarget:
		res.GameOver = true
		res.GameWinner = Outcome(RoleO)
	default:
		// 非終局回合才清空出拳
		r.choices = make(map[Role]Choice)
	}

	return res, nil
}

// resolveRound 依剋制表判定回合勝方
func resolveRound(choiceX, choiceO Choice) Outcome {
	if choiceX == choiceO {
		return OutcomeDraw
	}
	if beats[choiceX] == choiceO {
		return Outcome(RoleX)
	}
	return Outcome(RoleO)
}

func (r *RockPaperScissors) Snapshot() Snapshot {
	return Snapshot{
		Board:         make([]string, 9),
		CurrentPlayer: RoleX,
		RPSScores:     copyScores(r.scores),
		RPSRound:      r.round,
	}
}
