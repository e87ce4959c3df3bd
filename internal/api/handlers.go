package api

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"admin-mirror/internal/models"
)

var knownKinds = []string{
	models.KindAccounts,
	models.KindOrigins,
	models.KindAuths,
	models.KindPonies,
	models.KindEvents,
}

func notFound(c *gin.Context, code string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": gin.H{"code": code, "message": "not found"},
	})
}

func (s *Server) getAccount(c *gin.Context) {
	info, ok := s.mirror.GetAccountInfo(c.Param("id"))
	if !ok {
		notFound(c, "account_not_found")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getAccountAuths(c *gin.Context) {
	infos, ok := s.mirror.GetAccountAuthInfos(c.Param("id"))
	if !ok {
		notFound(c, "account_not_found")
		return
	}
	if infos == nil {
		infos = []*models.AuthInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"auths": infos})
}

func (s *Server) getAccountsByEmail(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"accounts": s.mirror.AccountInfosByEmailName(c.Param("name")),
	})
}

func (s *Server) getAccountsByNoteRef(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"accounts": s.mirror.AccountInfosByNoteRef(c.Param("id")),
	})
}

func (s *Server) getAccountsByBrowser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"accounts": s.mirror.AccountInfosByBrowserID(c.Param("id")),
	})
}

func (s *Server) getOrigin(c *gin.Context) {
	info, ok := s.mirror.GetOriginInfo(c.Param("ip"))
	if !ok {
		notFound(c, "origin_not_found")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getAuth(c *gin.Context) {
	info, ok := s.mirror.GetAuthInfo(c.Param("id"))
	if !ok {
		notFound(c, "auth_not_found")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getPony(c *gin.Context) {
	info, ok := s.mirror.GetPonyInfo(c.Param("id"))
	if !ok {
		notFound(c, "pony_not_found")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getEvent(c *gin.Context) {
	info, ok := s.mirror.GetEventInfo(c.Param("id"))
	if !ok {
		notFound(c, "event_not_found")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) health(c *gin.Context) {
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "connected"
		ctx, cancel := s.ctx(c)
		if err := s.redis.Ping(ctx); err != nil {
			redisStatus = "error"
		}
		cancel()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"redis":            redisStatus,
		"accounts_loaded":  s.mirror.Accounts().Finished(),
		"accounts_count":   s.mirror.Accounts().Len(),
		"origins_count":    s.mirror.Origins().Len(),
		"auths_count":      s.mirror.Auths().Len(),
		"ponies_count":     s.mirror.Ponies().Len(),
		"events_count":     s.mirror.Events().Len(),
	})
}

// removedItem is the inter-process deletion RPC: another process deleted a
// record and informs this cache directly.
func (s *Server) removedItem(c *gin.Context) {
	kind := c.Param("kind")
	if !slices.Contains(knownKinds, kind) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_kind", "message": "unknown entity kind"},
		})
		return
	}
	s.mirror.RemovedItem(kind, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) runSweep(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()
	kept, err := s.sweep.Run(ctx)
	if err != nil {
		s.log.Warn("manual_sweep_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "sweep_failed", "message": "sweep failed"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"merged": kept != "", "keep": kept})
}

func (s *Server) trackSpam(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_body", "message": "expected json body"},
		})
		return
	}
	count := s.mirror.TrackSpam(c.Param("id"), body.Message)
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) trackReport(c *gin.Context) {
	count := s.mirror.TrackReport(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"count": count})
}
