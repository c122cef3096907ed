package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/ingest"
	"expensetracker/internal/query"

	"github.com/gin-gonic/gin"
)

type deleteManyRequest struct {
	IDs []string `json:"ids" binding:"dive,notblank"`
}

func (h *handlers) createExpense(c *gin.Context) {
	var in core.ExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, bindError(err))
		return
	}

	e, err := h.deps.Expenses.Create(c.Request.Context(), ownerID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *handlers) listExpenses(c *gin.Context) {
	params, err := query.ParseListParams(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.deps.Expenses.List(c.Request.Context(), ownerID(c), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getExpense(c *gin.Context) {
	e, err := h.deps.Expenses.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handlers) updateExpense(c *gin.Context) {
	var patch core.ExpensePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, bindError(err))
		return
	}

	e, err := h.deps.Expenses.Update(c.Request.Context(), ownerID(c), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// deleteExpense succeeds whether or not the id existed.
func (h *handlers) deleteExpense(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.deps.Expenses.Delete(c.Request.Context(), ownerID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "expense deleted", "id": id})
}

func (h *handlers) deleteExpenses(c *gin.Context) {
	var req deleteManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	n, err := h.deps.Expenses.DeleteMany(c.Request.Context(), ownerID(c), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedCount": n})
}

// bulkCreate accepts a JSON array, a text/csv body, or a multipart form with
// the CSV in its "file" part.
func (h *handlers) bulkCreate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	rows, err := h.readBulkRows(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.deps.Expenses.BulkCreate(c.Request.Context(), ownerID(c), rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) readBulkRows(c *gin.Context) ([]ingest.Row, error) {
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		fh, err := c.FormFile("file")
		if err != nil {
			if _, tooLarge := asMaxBytes(err); tooLarge {
				return nil, err
			}
			return nil, &core.ValidationError{Field: "file", Err: errMissingFile}
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file: %w", err)
		}
		defer f.Close()
		return ingest.ParseCSV(f)

	case "text/csv", "application/csv":
		body, err := readBody(c)
		if err != nil {
			return nil, err
		}
		return ingest.ParseCSV(bytes.NewReader(body))

	default:
		body, err := readBody(c)
		if err != nil {
			return nil, err
		}
		return ingest.ParseJSON(bytes.NewReader(body))
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if _, tooLarge := asMaxBytes(err); tooLarge {
			return nil, err
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}
