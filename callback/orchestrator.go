// Package callback завершает вход через внешнего провайдера: разбирает
// фрагмент с временными учетными данными, устанавливает их в хранилище
// сессии и выполняет переход только после того, как глобальная сессия
// станет аутентифицированной.
//
// Оркестратор - явный конечный автомат:
//
//	idle -> installing -> installed -> navigated
//	                  \-> failed -> navigated_to_fallback
//	installed -> failed
//
// Переход installed -> navigated срабатывает только когда AuthState сообщает
// true. Установка учетных данных и появление аутентифицированной сессии для
// остального приложения не атомарны, поэтому переход по одному лишь
// installed приводил бы к маршрутизации на защищенную страницу без сессии.
// installed -> failed - отказ хранилища после Install или таймаут ожидания.
package callback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"s3console/logger"
	"s3console/oidc"
	"s3console/redirect"
	"s3console/session"
)

// Orchestrator обрабатывает ровно один callback. Для каждой входящей
// навигации создается новый экземпляр.
type Orchestrator struct {
	cfg       Config
	installer Installer
	auth      AuthState
	notifier  Notifier
	navigator Navigator
	metrics   *Metrics
	log       *logger.Logger

	handled atomic.Bool  // токен идемпотентности экземпляра
	state   atomic.Value // State; меняет только горутина, получившая токен
}

// New создает оркестратор. cfg может быть nil.
func New(cfg *Config, installer Installer, auth AuthState, notifier Notifier, navigator Navigator) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid callback config: %w", err)
	}
	if installer == nil || auth == nil || notifier == nil || navigator == nil {
		return nil, errors.New("callback orchestrator requires installer, auth state, notifier and navigator")
	}

	o := &Orchestrator{
		cfg:       *cfg,
		installer: installer,
		auth:      auth,
		notifier:  notifier,
		navigator: navigator,
		metrics:   defaultMetrics(),
		log:       logger.Component("callback"),
	}
	o.state.Store(StateIdle)
	return o, nil
}

// State возвращает текущее состояние
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

// Handle обрабатывает фрагмент callback. Повторный вызов на том же экземпляре
// ничего не делает и возвращает ErrAlreadyHandled; это единственная ошибка,
// которую видит вызывающий код. Все неудачи входа отражаются в Outcome.
//
// Отмена ctx означает, что пользователь ушел со страницы: экземпляр переходит
// в StateAbandoned без уведомления и без перехода.
func (o *Orchestrator) Handle(ctx context.Context, fragment string) (Outcome, error) {
	if !o.handled.CompareAndSwap(false, true) {
		o.log.Debug("Duplicate callback dispatch suppressed (state: %s)", o.State())
		return Outcome{State: o.State()}, ErrAlreadyHandled
	}

	o.metrics.InFlight.Inc()
	defer o.metrics.InFlight.Dec()

	outcome := o.run(ctx, fragment)
	o.metrics.CallbacksTotal.WithLabelValues(outcome.State.String(), reasonLabel(outcome.Err)).Inc()
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, fragment string) Outcome {
	o.advance(StateInstalling)

	creds, ok := oidc.ParseCallback(fragment)
	if !ok {
		return o.fail(ErrMalformedCallback)
	}
	o.log.Debug("Parsed SSO callback: %s", creds)

	start := time.Now()
	err := o.install(ctx, creds)
	if ctx.Err() != nil {
		return o.abandon(ctx.Err())
	}
	if err != nil {
		return o.fail(fmt.Errorf("%w: %v", ErrInstallRejected, err))
	}
	o.metrics.InstallLatency.Observe(time.Since(start).Seconds())

	target := redirect.Guard(creds.Redirect, o.cfg.DefaultRedirect)
	o.advance(StateInstalled)

	waitStart := time.Now()
	if err := o.awaitAuthenticated(ctx); err != nil {
		if errors.Is(err, ErrAuthWaitTimeout) || errors.Is(err, ErrInstallRejected) {
			return o.fail(err)
		}
		return o.abandon(err)
	}
	o.metrics.AuthWaitLatency.Observe(time.Since(waitStart).Seconds())

	o.advance(StateNavigated)
	o.log.Info("SSO login completed for %s, navigating to %s", logger.Mask(creds.AccessKey), target)
	o.notifier.Notify(NoticeSuccess, MessageSuccess)
	o.navigator.NavigateTo(target)
	return Outcome{State: StateNavigated, Target: target}
}

// install вызывает хранилище сессии. Если ctx отменен раньше, результат
// установки игнорируется: горутина пишет в буферизованный канал и завершается.
func (o *Orchestrator) install(ctx context.Context, creds oidc.Credentials) error {
	result := make(chan error, 1)
	go func() {
		result <- o.installer.Install(ctx, session.STSCredentials{
			AccessKeyID:     creds.AccessKey,
			SecretAccessKey: creds.SecretKey,
			SessionToken:    creds.SessionToken,
			Expiration:      creds.Expiration,
		})
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		go func() {
			err := <-result
			o.log.Debug("Ignoring late install result after cancellation (err: %v)", err)
		}()
		return ctx.Err()
	}
}

// awaitAuthenticated ждет, пока AuthState не сообщит true или не отвергнет
// учетные данные. Подписка оформляется до первой проверки, чтобы не пропустить
// изменение между ними.
func (o *Orchestrator) awaitAuthenticated(ctx context.Context) error {
	updates, stop := o.auth.Watch()
	defer stop()

	var timeout <-chan time.Time
	if o.cfg.AuthWaitTimeout > 0 {
		timer := time.NewTimer(o.cfg.AuthWaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if o.auth.IsAuthenticated() {
			return nil
		}
		if err := o.auth.LastError(); err != nil {
			return fmt.Errorf("%w: %v", ErrInstallRejected, err)
		}

		select {
		case _, ok := <-updates:
			if !ok {
				// Источник закрыл канал: дальше ждем только таймаут или отмену
				updates = nil
			}
		case <-timeout:
			return ErrAuthWaitTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fail переводит автомат в failed и сразу уводит на страницу входа.
// Redirect из фрагмента при неудаче не используется никогда.
func (o *Orchestrator) fail(reason error) Outcome {
	o.advance(StateFailed)
	o.log.Warn("SSO login failed: %v", reason)

	o.advance(StateNavigatedToFallback)
	o.notifier.Notify(NoticeError, MessageFailed)
	o.navigator.NavigateTo(o.cfg.LoginRoute)
	return Outcome{State: StateNavigatedToFallback, Target: o.cfg.LoginRoute, Err: reason}
}

func (o *Orchestrator) abandon(reason error) Outcome {
	o.advance(StateAbandoned)
	o.log.Info("SSO callback abandoned: %v", reason)
	return Outcome{State: StateAbandoned, Err: reason}
}

func (o *Orchestrator) advance(to State) {
	from := o.State()
	if !canTransition(from, to) {
		o.log.Error("%v", &transitionError{from: from, to: to})
	}
	o.state.Store(to)
	o.log.Debug("Callback state changed: %s -> %s", from, to)
}
