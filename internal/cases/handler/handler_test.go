package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	archivemodels "watchdesk/internal/archive/models"
	archiveservice "watchdesk/internal/archive/service"
	archivestore "watchdesk/internal/archive/store"
	"watchdesk/internal/cases/models"
	"watchdesk/internal/cases/service"
	"watchdesk/internal/cases/store"
	screening "watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/testutil"
)

type officers map[id.UserID]models.Officer

func (o officers) FindOfficer(_ context.Context, userID id.UserID) (models.Officer, error) {
	off, ok := o[userID]
	if !ok {
		return models.Officer{}, sentinel.ErrNotFound
	}
	return off, nil
}

type entities map[id.EntityID]screening.Record

func (e entities) Lookup(_ context.Context, entityID id.EntityID) (screening.Record, error) {
	return e[entityID], nil
}

type CaseHandlerSuite struct {
	suite.Suite
	router  chi.Router
	officer id.UserID
	other   id.UserID
	manager id.UserID
}

func TestCaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaseHandlerSuite))
}

func (s *CaseHandlerSuite) SetupTest() {
	s.officer = id.UserID(uuid.New())
	s.other = id.UserID(uuid.New())
	s.manager = id.UserID(uuid.New())
	users := officers{
		s.officer: {ID: s.officer, Name: "Alice", Role: id.RoleOfficer},
		s.other:   {ID: s.other, Name: "Bob", Role: id.RoleOfficer},
		s.manager: {ID: s.manager, Name: "Mona", Role: id.RoleManager},
	}
	records := entities{
		"E123": {EntityID: "E123", Caption: "Michael Smith", Schema: "Person", Nationality: []string{"ru"}},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), users, archiveservice.New(archivestore.NewInMemory()),
		service.WithLogger(logger),
		service.WithEntityLookup(records),
	)
	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *CaseHandlerSuite) do(method, path string, body any, user id.UserID, role id.Role) *http.Request {
	return testutil.AsUser(testutil.NewJSONRequest(s.T(), method, path, body), user, role)
}

func (s *CaseHandlerSuite) casePath(officer id.UserID, suffix string) string {
	return "/cases/E123/" + officer.String() + suffix
}

func (s *CaseHandlerSuite) open() {
	rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/cases", map[string]string{"entity_id": "E123"}, s.officer, id.RoleOfficer))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *CaseHandlerSuite) TestOpenAndList() {
	s.open()

	rr := testutil.DoRequest(s.router, s.do(http.MethodGet, "/cases", nil, s.officer, id.RoleOfficer))
	s.Require().Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[CaseListResponse](s.T(), rr)
	s.Require().Equal(1, resp.Count)
	s.Equal("Select Status", resp.Cases[0].Status.String())
	s.Equal("Alice", resp.Cases[0].OfficerName)

	s.Run("opening twice conflicts", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/cases", map[string]string{"entity_id": "E123"}, s.officer, id.RoleOfficer))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "duplicate_case")
	})

	s.Run("missing entity id is rejected", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, "/cases", map[string]string{}, s.officer, id.RoleOfficer))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *CaseHandlerSuite) TestEitherRoleOpensAndSeesOwnCase() {
	users := map[id.Role]id.UserID{id.RoleOfficer: s.officer, id.RoleManager: s.manager}
	testutil.ForEachRole(s.T(), func(t *testing.T, role id.Role) {
		user := users[role]
		rr := testutil.DoRequest(s.router, testutil.AsUser(
			testutil.NewJSONRequest(t, http.MethodPost, "/cases", map[string]string{"entity_id": "E123"}), user, role))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = testutil.DoRequest(s.router, testutil.AsUser(testutil.NewJSONRequest(t, http.MethodGet, "/cases", nil), user, role))
		require.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[CaseListResponse](t, rr)
		require.Equal(t, 1, resp.Count, "unset cases of others stay hidden")
		assert.Equal(t, user, resp.Cases[0].OfficerID)
	})
}

func (s *CaseHandlerSuite) TestStatusFlow() {
	s.open()

	s.Run("unknown label is an invalid status", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPut, s.casePath(s.officer, "/status"), map[string]string{"status": "Flag:6"}, s.officer, id.RoleOfficer))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_status")
	})

	s.Run("manager cannot see an unset case", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPut, s.casePath(s.officer, "/status"), map[string]string{"status": "Flag:2"}, s.manager, id.RoleManager))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("owner sets pending then manager flags", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPut, s.casePath(s.officer, "/status"), map[string]string{"status": "Pending"}, s.officer, id.RoleOfficer))
		s.Require().Equal(http.StatusOK, rr.Code)

		rr = testutil.DoRequest(s.router, s.do(http.MethodPut, s.casePath(s.officer, "/status"), map[string]string{"status": "Flag:3"}, s.manager, id.RoleManager))
		s.Require().Equal(http.StatusOK, rr.Code)
		s.JSONEq(`"Flag:3"`, jsonField(s, rr.Body.Bytes(), "status"))
	})

	s.Run("queue groups flagged work", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodGet, "/cases/queue", nil, s.manager, id.RoleManager))
		s.Require().Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[QueueResponse](s.T(), rr)
		s.Require().Len(resp.Officers, 1)
		s.Equal("Alice", resp.Officers[0].OfficerName)
	})
}

func (s *CaseHandlerSuite) TestReassignAndClear() {
	s.open()
	rr := testutil.DoRequest(s.router, s.do(http.MethodPut, s.casePath(s.officer, "/status"), map[string]string{"status": "Flag:3"}, s.officer, id.RoleOfficer))
	s.Require().Equal(http.StatusOK, rr.Code)

	s.Run("officers cannot reassign", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, s.casePath(s.officer, "/reassign"), map[string]string{"officer_id": s.other.String()}, s.officer, id.RoleOfficer))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("unknown officer", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, s.casePath(s.officer, "/reassign"), map[string]string{"officer_id": uuid.NewString()}, s.manager, id.RoleManager))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "unknown_officer")
	})

	s.Run("manager reassigns", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, s.casePath(s.officer, "/reassign"), map[string]string{"officer_id": s.other.String()}, s.manager, id.RoleManager))
		s.Require().Equal(http.StatusOK, rr.Code)
		c := testutil.UnmarshalResponse[models.Case](s.T(), rr)
		s.Equal(s.other, c.OfficerID)
		s.Equal("Flag:3", c.Status.String())
	})

	s.Run("new owner clears", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, s.casePath(s.other, "/clear"), nil, s.other, id.RoleOfficer))
		s.Require().Equal(http.StatusOK, rr.Code)
		rec := testutil.UnmarshalResponse[archivemodels.HistoryRecord](s.T(), rr)
		s.Equal("Flag:3", rec.Status.String())
	})

	s.Run("clearing again is not found", func() {
		rr := testutil.DoRequest(s.router, s.do(http.MethodPost, s.casePath(s.other, "/clear"), nil, s.other, id.RoleOfficer))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *CaseHandlerSuite) TestDelete() {
	s.open()

	rr := testutil.DoRequest(s.router, s.do(http.MethodDelete, s.casePath(s.officer, ""), nil, s.other, id.RoleOfficer))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(s.router, s.do(http.MethodDelete, s.casePath(s.officer, ""), nil, s.manager, id.RoleManager))
	s.Equal(http.StatusNoContent, rr.Code)
}

func (s *CaseHandlerSuite) TestBadPathAndMissingPrincipal() {
	rr := testutil.DoRequest(s.router, s.do(http.MethodGet, "/cases/E123/not-a-uuid", nil, s.officer, id.RoleOfficer))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/cases", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func jsonField(s *CaseHandlerSuite, body []byte, field string) string {
	var m map[string]any
	s.Require().NoError(json.Unmarshal(body, &m))
	raw, err := json.Marshal(m[field])
	s.Require().NoError(err)
	return string(raw)
}
