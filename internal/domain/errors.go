package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session matches a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrInvalidQuestionSet indicates a set that fails structural validation.
	ErrInvalidQuestionSet = errors.New("invalid question set")
	// ErrNotHost is returned when a host-only command comes from anyone else.
	ErrNotHost = errors.New("only the host may do that")
	// ErrGameAlreadyStarted rejects joins once the lobby has closed.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrSessionFinished rejects mutations against a finished session.
	ErrSessionFinished = errors.New("session already finished")
	// ErrInvalidState rejects a command that is out of order for the current status.
	ErrInvalidState = errors.New("command not valid in current state")
	// ErrInvalidNickname rejects empty or over-long nicknames.
	ErrInvalidNickname = errors.New("invalid nickname")
	// ErrNicknameInUse rejects a nickname bound to another live connection.
	ErrNicknameInUse = errors.New("nickname in use")
	// ErrNicknameBlocked rejects a nickname on the session blocklist.
	ErrNicknameBlocked = errors.New("nickname blocked")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrAlreadyAnswered rejects a second answer for the same question.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrInvalidChoice rejects an answer index outside the question's choices.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrNoPlayers rejects starting a game with an empty lobby.
	ErrNoPlayers = errors.New("no players in session")
	// ErrHostTokenMismatch rejects a host resume with the wrong capability token.
	ErrHostTokenMismatch = errors.New("host token mismatch")
)
