package proximity

import "context"

// Session drives a sequence of escalating Search calls for one logical
// search. The radius never narrows and the source never reverts from donors
// to banks. Sessions are not safe for concurrent use; independent sessions
// are fully independent.
type Session struct {
	searcher  *Searcher
	req       Request
	stage     Stage
	exhausted bool
}

// NewSession validates the request and positions the session at the first
// stage. A request without usable coordinates still yields a session; it
// runs in the degraded city-scoped mode.
func (s *Searcher) NewSession(req Request) (*Session, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	return &Session{searcher: s, req: req, stage: FirstStage()}, nil
}

// Exhausted reports whether every stage, including the donor fallback, has
// come up empty.
func (sess *Session) Exhausted() bool { return sess.exhausted }

// Stage returns the stage the next call to Next will search.
func (sess *Session) Stage() Stage { return sess.stage }

// Next performs the current stage. On an empty result it advances to the
// following stage so the caller's next invocation escalates; on a hit it
// stays put, so repeated calls re-observe the same stage. Cancellation is
// honored between stages via ctx.
func (sess *Session) Next(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if sess.exhausted {
		return Result{
			Source: sess.stage.Source,
			State:  StateExhausted,
			Stage:  sess.stage,
		}, nil
	}

	res, err := sess.searcher.Search(ctx, sess.req, sess.stage)
	if err != nil {
		return Result{}, err
	}

	if len(res.Matches) == 0 {
		if res.Next != nil {
			sess.stage = *res.Next
		} else {
			sess.exhausted = true
		}
	}
	return res, nil
}
