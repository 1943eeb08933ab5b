package app

import (
	"context"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
)

// Setup describes a session to create: teams, organizers and rounds over
// existing base questions.
type Setup struct {
	ID          string             `json:"id,omitempty" yaml:"id"`
	Title       string             `json:"title" yaml:"title"`
	ScorePolicy domain.ScorePolicy `json:"scorePolicy" yaml:"scorePolicy"`
	Organizers  []PersonSetup      `json:"organizers" yaml:"organizers"`
	Teams       []TeamSetup        `json:"teams" yaml:"teams"`
	Rounds      []RoundSetup       `json:"rounds" yaml:"rounds"`
}

type PersonSetup struct {
	ID   string `json:"id,omitempty" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type TeamSetup struct {
	ID    string `json:"id,omitempty" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color"`
}

type RoundSetup struct {
	ID          string           `json:"id,omitempty" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Type        domain.RoundType `json:"type" yaml:"type"`
	QuestionIDs []string         `json:"questionIds" yaml:"questionIds"`
	Rewards     domain.Rewards   `json:"rewards" yaml:"rewards"`
}

// CreateSession validates a setup and writes the new session. It returns the
// session id.
func (e *Engine) CreateSession(ctx context.Context, setup Setup) (string, error) {
	if setup.ScorePolicy == "" {
		setup.ScorePolicy = domain.PolicyRanking
	}
	if !setup.ScorePolicy.Valid() {
		return "", domain.Reject(domain.RejectInvalidArgument, "unknown score policy %q", setup.ScorePolicy)
	}
	if len(setup.Teams) == 0 {
		return "", domain.Reject(domain.RejectInvalidArgument, "a session needs at least one team")
	}
	if len(setup.Organizers) == 0 {
		return "", domain.Reject(domain.RejectInvalidArgument, "a session needs an organizer")
	}
	for _, r := range setup.Rounds {
		if len(r.QuestionIDs) == 0 {
			return "", domain.Reject(domain.RejectInvalidArgument, "round %q has no questions", r.Title)
		}
		// Base content must exist before anyone can play it.
		for _, qid := range r.QuestionIDs {
			if _, err := e.loadContent(ctx, qid); err != nil {
				return "", err
			}
		}
	}
	if setup.ID == "" {
		setup.ID = e.newID()
	}
	for i := range setup.Organizers {
		if setup.Organizers[i].ID == "" {
			setup.Organizers[i].ID = e.newID()
		}
	}
	for i := range setup.Teams {
		if setup.Teams[i].ID == "" {
			setup.Teams[i].ID = e.newID()
		}
	}
	for i := range setup.Rounds {
		if setup.Rounds[i].ID == "" {
			setup.Rounds[i].ID = e.newID()
		}
	}

	ref := Ref{SessionID: setup.ID}
	if len(setup.Organizers) > 0 {
		ref.ActorID = setup.Organizers[0].ID
	}
	err := e.run(ctx, ActionCreateSession, ref, func(t *turn) error {
		if _, exists, err := store.GetTx[domain.Session](t.tx, store.SessionPath(setup.ID)); err != nil {
			return err
		} else if exists {
			return domain.Reject(domain.RejectAlreadyDone, "session %s already exists", setup.ID)
		}
		return t.writeSetup(setup)
	})
	if err != nil {
		return "", err
	}
	return setup.ID, nil
}

func (t *turn) writeSetup(setup Setup) error {
	s := &domain.Session{
		ID:           setup.ID,
		Title:        setup.Title,
		Status:       domain.StatusNotStarted,
		ScorePolicy:  setup.ScorePolicy,
		RoundIDs:     []string{},
		TeamIDs:      []string{},
		OrganizerIDs: []string{},
		CreatedAt:    t.now,
	}
	for _, o := range setup.Organizers {
		s.OrganizerIDs = append(s.OrganizerIDs, o.ID)
		if err := t.repo.SaveParticipant(&domain.Participant{
			ID:     o.ID,
			Name:   o.Name,
			Role:   domain.RoleOrganizer,
			Status: domain.PlayerIdle,
		}); err != nil {
			return err
		}
	}
	for _, ts := range setup.Teams {
		s.TeamIDs = append(s.TeamIDs, ts.ID)
		if err := t.repo.SaveTeam(&domain.Team{
			ID:        ts.ID,
			Name:      ts.Name,
			Color:     ts.Color,
			PlayerIDs: []string{},
		}); err != nil {
			return err
		}
	}
	for _, rs := range setup.Rounds {
		s.RoundIDs = append(s.RoundIDs, rs.ID)
		if err := t.repo.SaveRound(&domain.Round{
			ID:             rs.ID,
			Title:          rs.Title,
			Type:           rs.Type,
			QuestionIDs:    rs.QuestionIDs,
			Rewards:        rs.Rewards,
			QuestionStatus: []domain.QuestionOutcome{},
		}); err != nil {
			return err
		}
	}
	s.UpdatedAt = t.now
	if err := t.repo.SaveSession(s); err != nil {
		return err
	}
	if err := t.repo.SaveChooser(&domain.Chooser{TeamOrder: []string{}}); err != nil {
		return err
	}
	if err := t.repo.SaveGameScores(domain.NewScores(s.TeamIDs)); err != nil {
		return err
	}
	if err := t.repo.SaveTimer(&domain.Timer{Status: domain.TimerReset, UpdatedAt: t.now}); err != nil {
		return err
	}
	if err := t.repo.SaveReady(&domain.Ready{PlayerIDs: []string{}}); err != nil {
		return err
	}
	t.wrote = true
	return nil
}

// JoinRequest adds or updates a participant.
type JoinRequest struct {
	ParticipantID string      `json:"participantId,omitempty"`
	Name          string      `json:"name"`
	Role          domain.Role `json:"role,omitempty"`
	TeamID        string      `json:"teamId,omitempty"`
}

// Join registers or refreshes a participant in a session. Players belong to
// exactly one team; joining another team moves them.
func (e *Engine) Join(ctx context.Context, sessionID string, req JoinRequest) (domain.Participant, error) {
	if req.Role == "" {
		req.Role = domain.RolePlayer
	}
	switch req.Role {
	case domain.RolePlayer, domain.RoleOrganizer, domain.RoleSpectator:
	default:
		return domain.Participant{}, domain.Reject(domain.RejectInvalidArgument, "unknown role %q", req.Role)
	}
	if req.ParticipantID == "" {
		req.ParticipantID = e.newID()
	}
	var joined domain.Participant
	ref := Ref{SessionID: sessionID, ActorID: req.ParticipantID}
	err := e.runSession(ctx, ActionJoin, ref, func(t *turn) error {
		p, existed, err := t.repo.FindParticipant(req.ParticipantID)
		if err != nil {
			return err
		}
		if !existed {
			p = &domain.Participant{ID: req.ParticipantID, Status: domain.PlayerIdle}
		}
		if existed && p.Role != req.Role {
			return domain.Reject(domain.RejectInvalidArgument, "%s already joined as %s", p.ID, p.Role)
		}
		p.Name = req.Name
		p.Role = req.Role

		switch req.Role {
		case domain.RolePlayer:
			if err := t.joinTeam(p, req.TeamID, !existed); err != nil {
				return err
			}
		case domain.RoleOrganizer:
			if !t.session.IsOrganizer(p.ID) {
				t.session.OrganizerIDs = append(t.session.OrganizerIDs, p.ID)
				t.mark(docSession)
			}
		}
		t.players[p.ID] = p
		t.dirtyPlayers[p.ID] = true
		joined = *p
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return joined, nil
}

func (t *turn) joinTeam(p *domain.Participant, teamID string, isNew bool) error {
	found := false
	for _, id := range t.session.TeamIDs {
		if id == teamID {
			found = true
		}
	}
	if !found {
		return domain.ErrTeamNotFound
	}
	if p.TeamID == teamID {
		return nil
	}
	if p.TeamID != "" {
		old, err := t.repo.Team(p.TeamID)
		if err != nil {
			return err
		}
		old.PlayerIDs = remove(old.PlayerIDs, p.ID)
		if err := t.repo.SaveTeam(old); err != nil {
			return err
		}
	}
	team, err := t.repo.Team(teamID)
	if err != nil {
		return err
	}
	team.PlayerIDs = append(team.PlayerIDs, p.ID)
	if err := t.repo.SaveTeam(team); err != nil {
		return err
	}
	p.TeamID = teamID
	t.wrote = true

	if isNew {
		rd, err := t.repo.Ready()
		if err != nil {
			return err
		}
		rd.NumPlayers++
		return t.repo.SaveReady(rd)
	}
	return nil
}

// SetReady flags the acting player as ready or not.
func (e *Engine) SetReady(ctx context.Context, ref Ref, ready bool) error {
	return e.runSession(ctx, ActionSetReady, ref, func(t *turn) error {
		p, err := t.requirePlayer()
		if err != nil {
			return err
		}
		rd, err := t.repo.Ready()
		if err != nil {
			return err
		}
		already := contains(rd.PlayerIDs, p.ID)
		if already == ready {
			return nil
		}
		status := domain.PlayerIdle
		if ready {
			rd.PlayerIDs = append(rd.PlayerIDs, p.ID)
			status = domain.PlayerReady
		} else {
			rd.PlayerIDs = remove(rd.PlayerIDs, p.ID)
		}
		rd.NumReady = len(rd.PlayerIDs)
		if err := t.repo.SaveReady(rd); err != nil {
			return err
		}
		t.wrote = true
		return t.setStatus(p.ID, status)
	})
}

func remove(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
