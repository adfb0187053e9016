package main

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/tj/go/http/response"

	"github.com/unee-t/firecheck/internal/cloud"
	"github.com/unee-t/firecheck/internal/codec"
	"github.com/unee-t/firecheck/internal/imaging"
	"github.com/unee-t/firecheck/internal/inspection"
	"github.com/unee-t/firecheck/internal/pdfreport"
	"github.com/unee-t/firecheck/internal/report"
	"github.com/unee-t/firecheck/internal/session"
)

const (
	maxUpload   = 64 << 20
	retryLater  = "Falha de comunicação com a nuvem. Verifique a conexão e tente novamente."
	userHeader  = "X-User-ID"
	photosField = "fotos"
	fileField   = "arquivo"
)

type app struct {
	sessions  session.Store
	guard     *session.Guard
	publisher *cloud.Publisher
	images    imaging.Options
	stage     string
	now       func() time.Time
	templates *template.Template
}

var headerDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func (a *app) routes() http.Handler {
	r := mux.NewRouter()
	r.PathPrefix("/templates").Handler(http.FileServer(http.Dir(".")))
	r.HandleFunc("/", a.handleIndex).Methods("GET")

	r.HandleFunc("/reports", a.handleCreate).Methods("POST")
	s := r.PathPrefix("/reports/{sid}").Subrouter()
	s.HandleFunc("", a.handleReport).Methods("GET")
	s.HandleFunc("", a.handleDiscard).Methods("DELETE")
	s.HandleFunc("/items", a.handleItems).Methods("GET")
	s.HandleFunc("/items/{uid:[0-9]+}", a.handleRemoveItem).Methods("DELETE")
	s.HandleFunc("/items/{uid:[0-9]+}/edit", a.handleEditItem).Methods("POST")
	s.HandleFunc("/items/{category}", a.handleAddItem).Methods("POST")
	s.HandleFunc("/edit/cancel", a.handleCancelEdit).Methods("POST")
	s.HandleFunc("/header", a.handleHeader).Methods("PUT")
	s.HandleFunc("/photos", a.handleStagePhotos).Methods("POST")
	s.HandleFunc("/photos", a.handleClearPhotos).Methods("DELETE")
	s.HandleFunc("/photos/{index:[0-9]+}", a.handleDropPhoto).Methods("DELETE")
	s.HandleFunc("/signatures/{slot}", a.handleSignature).Methods("PUT")
	s.HandleFunc("/pdf", a.handlePDF).Methods("GET")
	s.HandleFunc("/backup", a.handleExportBackup).Methods("GET")
	s.HandleFunc("/backup", a.handleImportBackup).Methods("POST")
	s.HandleFunc("/sheet", a.handleExportSheet).Methods("GET")
	s.HandleFunc("/sheet", a.handleImportSheet).Methods("POST")
	s.HandleFunc("/publish", a.handlePublish).Methods("POST")

	r.HandleFunc("/history", a.handleHistory).Methods("GET")
	r.HandleFunc("/history/{id}/open", a.handleOpen).Methods("POST")
	return r
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	if a.stage != "production" {
		w.Header().Set("X-Robots-Tag", "none")
	}
	err := a.templates.ExecuteTemplate(w, "index.html", map[string]interface{}{
		csrf.TemplateTag: csrf.TemplateField(r),
		"Stage":          a.stage,
		"Categories":     categoryOptions(),
	})
	if err != nil {
		log.WithError(err).Error("rendering index")
	}
}

type categoryOption struct {
	Code  inspection.Category
	Label string
	Title string
}

func categoryOptions() []categoryOption {
	var out []categoryOption
	for _, c := range inspection.Canonical {
		v, _ := inspection.Lookup(c)
		out = append(out, categoryOption{Code: c, Label: v.Label, Title: v.Title})
	}
	return out
}

// fail answers with the status that matches the error kind. Validation
// problems go straight back to the user; cloud failures get a generic retry
// message.
func (a *app) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *inspection.ValidationError
		ferr *codec.ImportFormatError
		eerr *imaging.EncodingError
		ioe  *cloud.IOError
	)
	switch {
	case errors.As(err, &verr):
		response.JSON(w, ErrorResponse{Error: verr.Message, Field: verr.Field}, http.StatusBadRequest)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, report.ErrNotFound), errors.Is(err, cloud.ErrNotFound):
		response.JSON(w, ErrorResponse{Error: "Não encontrado."}, http.StatusNotFound)
	case errors.Is(err, session.ErrBusy):
		response.JSON(w, ErrorResponse{Error: "Aguarde, a operação anterior ainda está em andamento."}, http.StatusConflict)
	case errors.Is(err, session.ErrPhotosStaged):
		response.JSON(w, ErrorResponse{Error: "Adicione ou descarte as fotos selecionadas antes de editar um item."}, http.StatusConflict)
	case errors.Is(err, report.ErrEditInProgress):
		response.JSON(w, ErrorResponse{Error: "Salve ou cancele a edição atual antes de editar outro item."}, http.StatusConflict)
	case errors.As(err, &ferr):
		response.JSON(w, ErrorResponse{Error: "Arquivo inválido: " + ferr.Reason}, http.StatusUnprocessableEntity)
	case errors.As(err, &eerr):
		log.WithError(err).WithField("path", r.URL.Path).Warn("undecodable image")
		response.JSON(w, ErrorResponse{Error: "Imagem inválida."}, http.StatusBadRequest)
	case errors.As(err, &ioe):
		log.WithError(err).WithField("path", r.URL.Path).Error("cloud request failed")
		response.JSON(w, ErrorResponse{Error: retryLater}, http.StatusBadGateway)
	default:
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		response.JSON(w, ErrorResponse{Error: "Erro interno."}, http.StatusInternalServerError)
	}
}

func badRequest(field, msg string) error {
	return &inspection.ValidationError{Field: field, Code: inspection.CodeUnknown, Message: msg}
}

func userID(r *http.Request) string {
	return r.Header.Get(userHeader)
}

func sid(r *http.Request) string { return mux.Vars(r)["sid"] }

// guarded runs fn while op is marked in flight for the session. The mark
// is released whatever fn returns.
func (a *app) guarded(r *http.Request, op string, fn func() error) error {
	release, err := a.guard.Acquire(sid(r), op)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (a *app) handleCreate(w http.ResponseWriter, r *http.Request) {
	s := session.New(userID(r))
	if err := a.sessions.Create(r.Context(), s); err != nil {
		a.fail(w, r, err)
		return
	}
	log.WithFields(log.Fields{"session": s.ID, "user": s.User}).Info("session started")
	response.JSON(w, newReportView(s, report.OrderNewest), http.StatusCreated)
}

func (a *app) handleReport(w http.ResponseWriter, r *http.Request) {
	var v ReportView
	err := a.sessions.View(r.Context(), sid(r), func(s *session.Session) error {
		v = newReportView(s, report.OrderNewest)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, v)
}

func (a *app) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Delete(r.Context(), sid(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleItems(w http.ResponseWriter, r *http.Request) {
	order, err := report.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		a.fail(w, r, badRequest("order", "Ordenação desconhecida."))
		return
	}
	var items []ItemView
	err = a.sessions.View(r.Context(), sid(r), func(s *session.Session) error {
		items = newItemViews(s.Report.SortedView(order))
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, items)
}

func (a *app) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		a.fail(w, r, badRequest("form", "Formulário inválido."))
		return
	}
	cat := inspection.Category(mux.Vars(r)["category"])
	var view ItemView
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		it, err := s.CaptureItem(cat, r.PostForm)
		if err != nil {
			return err
		}
		view = newItemView(it)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, view, http.StatusCreated)
}

func itemUID(r *http.Request) int64 {
	uid, _ := strconv.ParseInt(mux.Vars(r)["uid"], 10, 64)
	return uid
}

func (a *app) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		s.Report.Remove(itemUID(r))
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var v ReportView
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		if _, err := s.Edit(itemUID(r)); err != nil {
			return err
		}
		v = newReportView(s, report.OrderNewest)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, v)
}

func (a *app) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	var v ReportView
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		s.CancelEdit()
		v = newReportView(s, report.OrderNewest)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, v)
}

func (a *app) handleHeader(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		a.fail(w, r, badRequest("form", "Formulário inválido."))
		return
	}
	var h report.Header
	if err := headerDecoder.Decode(&h, r.PostForm); err != nil {
		a.fail(w, r, badRequest("form", "Formulário inválido."))
		return
	}
	h.Verdict = report.ParseVerdict(string(h.Verdict))
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		s.Report.Header = h
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, h)
}

func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

func readUpload(fh *multipart.FileHeader) (imaging.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return imaging.Image{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return imaging.Image{}, err
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	return imaging.Image{Name: fh.Filename, MIME: mime, Data: data}, nil
}

func (a *app) handleStagePhotos(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		a.fail(w, r, badRequest(photosField, "Envie as fotos como multipart/form-data."))
		return
	}
	var raws []imaging.Image
	for _, fh := range r.MultipartForm.File[photosField] {
		img, err := readUpload(fh)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		raws = append(raws, img)
	}

	var res StageResult
	err := a.guarded(r, "photos", func() error {
		return a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
			skipped, err := s.StageImages(r.Context(), raws, a.images, log.WithField("session", s.ID))
			if err != nil {
				return err
			}
			res = StageResult{Staged: newStagedViews(s.Staged), Skipped: skipped}
			return nil
		})
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, res)
}

func (a *app) handleDropPhoto(w http.ResponseWriter, r *http.Request) {
	i, _ := strconv.Atoi(mux.Vars(r)["index"])
	var staged []StagedView
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		if err := s.DropStaged(i); err != nil {
			return err
		}
		staged = newStagedViews(s.Staged)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, StageResult{Staged: staged})
}

func (a *app) handleClearPhotos(w http.ResponseWriter, r *http.Request) {
	err := a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		s.ClearStaged()
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleSignature(w http.ResponseWriter, r *http.Request) {
	slot, err := session.ParseSlot(mux.Vars(r)["slot"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := parseForm(r); err != nil {
		a.fail(w, r, badRequest("form", "Formulário inválido."))
		return
	}
	var img imaging.Image
	if uri := r.PostForm.Get("data_uri"); uri != "" {
		if img, err = imaging.ParseDataURI(uri); err != nil {
			a.fail(w, r, badRequest("data_uri", "Assinatura inválida."))
			return
		}
	}
	err = a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		return s.SetSignature(slot, img)
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handlePDF(w http.ResponseWriter, r *http.Request) {
	mode := pdfreport.ParseMode(r.URL.Query().Get("mode"))
	var (
		data   []byte
		client string
	)
	err := a.guarded(r, "pdf", func() error {
		return a.sessions.View(r.Context(), sid(r), func(s *session.Session) error {
			doc := pdfreport.Render(s.Report, mode, pdfreport.Options{
				Now: a.now,
				Log: log.WithField("session", s.ID),
			})
			client = s.Report.Header.Client
			var err error
			data, err = doc.Bytes()
			return err
		})
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	inline, name := pdfreport.Delivery(client, mode, r.UserAgent())
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	w.Write(data)
}

func (a *app) download(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func (a *app) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := a.sessions.View(r.Context(), sid(r), func(s *session.Session) error {
		return codec.EncodeBackup(&buf, s.Report)
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.download(w, "application/json", fmt.Sprintf("Backup_FireCheck_%d.json", a.now().UnixMilli()), buf.Bytes())
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *app) handleExportSheet(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := a.sessions.View(r.Context(), sid(r), func(s *session.Session) error {
		return codec.ExportSheet(&buf, s.Report)
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.download(w, xlsxType, fmt.Sprintf("Planilha_FireCheck_%d.xlsx", a.now().UnixMilli()), buf.Bytes())
}

// uploadedFile returns the body of the "arquivo" form file, or the raw
// request body when the request is not multipart.
func uploadedFile(r *http.Request) (io.Reader, func(), error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return r.Body, func() {}, nil
		}
		return nil, nil, err
	}
	f, _, err := r.FormFile(fileField)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func (a *app) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	body, done, err := uploadedFile(r)
	if err != nil {
		a.fail(w, r, badRequest(fileField, "Selecione um arquivo de backup."))
		return
	}
	defer done()
	imported, err := codec.DecodeBackup(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var v ReportView
	err = a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		s.Replace(imported)
		v = newReportView(s, report.OrderNewest)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, v)
}

func (a *app) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	body, done, err := uploadedFile(r)
	if err != nil {
		a.fail(w, r, badRequest(fileField, "Selecione uma planilha."))
		return
	}
	defer done()
	imported, err := codec.ImportSheet(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var v ReportView
	err = a.sessions.Update(r.Context(), sid(r), func(s *session.Session) error {
		s.ApplySheet(imported)
		v = newReportView(s, report.OrderNewest)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, v)
}

func (a *app) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := userID(r)
	if user == "" {
		response.JSON(w, ErrorResponse{Error: "Faça login para usar a nuvem."}, http.StatusUnauthorized)
		return "", false
	}
	return user, true
}

func (a *app) handlePublish(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var res PublishResult
	err := a.guarded(r, "publish", func() error {
		return a.sessions.View(r.Context(), sid(r), func(s *session.Session) error {
			m, err := a.publisher.Publish(r.Context(), user, s.Report)
			if err != nil {
				return err
			}
			res = PublishResult{ReportID: m.ID, Items: len(m.Items)}
			return nil
		})
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, res, http.StatusCreated)
}

func (a *app) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	list, err := a.publisher.History(r.Context(), user)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]HistoryEntry, 0, len(list))
	for _, s := range list {
		out = append(out, newHistoryEntry(s))
	}
	response.JSON(w, out)
}

// handleOpen loads a stored report into a fresh session.
func (a *app) handleOpen(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	rep, err := a.publisher.Open(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	s := session.New(user)
	s.Replace(rep)
	if err := a.sessions.Create(r.Context(), s); err != nil {
		a.fail(w, r, err)
		return
	}
	response.JSON(w, newReportView(s, report.OrderNewest), http.StatusCreated)
}
